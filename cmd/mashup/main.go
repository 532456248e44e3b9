package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/handiism/mashup/internal/config"
	"github.com/handiism/mashup/internal/mashup"
	"github.com/handiism/mashup/internal/model"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// usageError marks errors caused by bad arguments or flags.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type options struct {
	configPath string
	verbose    bool
	overFetch  int
	tracklist  bool
	noTags     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	code := exitStatus(ctx, err)

	switch code {
	case exitUsage:
		fmt.Fprintln(stderr, styleError.Render("Error: "+err.Error()))
		fmt.Fprintln(stderr, "Usage: "+root.UseLine())
	case exitInterrupted:
		fmt.Fprintln(stderr, styleWarning.Render("Process cancelled by user."))
	case exitFailure:
		fmt.Fprintln(stderr, styleError.Render("Error: "+err.Error()))
	}
	return code
}

func exitStatus(ctx context.Context, err error) int {
	var usage usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usage),
		errors.Is(err, model.ErrInvalidRequest),
		errors.Is(err, model.ErrNotInteger):
		return exitUsage
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return exitInterrupted
	default:
		return exitFailure
	}
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mashup <artist> <count> <duration> <output>",
		Short: "Build an audio mashup from an artist's search results",
		Long: `Downloads the top search results for an artist, keeps the first
<duration> seconds of <count> of them, and joins them into one audio file.

<count> must be greater than 10 and <duration> greater than 20 seconds.
The output name gets a .mp3 extension if it has none.`,
		Example:       `  mashup "Daft Punk" 12 30 daftpunk.mp3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(4)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a JSON or TOML config file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "show per-track progress")
	flags.IntVar(&opts.overFetch, "over-fetch", -1, "extra tracks to download beyond count (default from config)")
	flags.BoolVar(&opts.tracklist, "tracklist", false, "write a tracklist next to the output")
	flags.BoolVar(&opts.noTags, "no-tags", false, "do not write ID3 tags or cover art")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	return cmd
}

func run(ctx context.Context, w io.Writer, opts *options, args []string) error {
	req, err := model.ParseRequest(args[0], args[1], args[2], args[3])
	if err != nil {
		return usageError{err}
	}

	settings, err := loadSettings(opts)
	if err != nil {
		return usageError{err}
	}

	start := time.Now()
	defer func() {
		fmt.Fprintln(w, styleMuted.Render(fmt.Sprintf("Total execution time: %.2f seconds", time.Since(start).Seconds())))
	}()

	fmt.Fprintln(w, styleTitle.Render("Mashup Generator"))
	fmt.Fprintln(w, styleRule.Render(rule))

	gen := mashup.NewGenerator(settings, newPrinter(w, opts.verbose))
	res, err := gen.Run(ctx, req)
	if err != nil {
		if errors.Is(err, mashup.ErrNoSegments) {
			return fmt.Errorf("no audio clips could be processed: %w", err)
		}
		return err
	}

	printSummary(w, req, res)
	return nil
}

func loadSettings(opts *options) (*config.Settings, error) {
	settings := config.DefaultSettings()
	if opts.configPath != "" {
		var err error
		settings, err = config.Load(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	settings.ApplyEnv()
	if wd, err := os.Getwd(); err == nil {
		settings.DetectLocalFFmpeg(wd)
	}

	if opts.overFetch >= 0 {
		settings.OverFetch = opts.overFetch
	}
	if opts.tracklist {
		settings.CreateTracklist = true
	}
	if opts.noTags {
		settings.ModifyTags = false
		settings.EmbedArtwork = false
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return settings, nil
}

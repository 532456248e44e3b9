package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/revx-official/output/log"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/mashup/internal/config"
	"github.com/handiism/mashup/internal/mail"
	"github.com/handiism/mashup/internal/task"
	"github.com/handiism/mashup/internal/web"
)

func main() {
	var (
		configFlag = flag.String("config", "", "Path to config file")
		envFlag    = flag.String("env", ".env", "Path to .env file (ignored if missing)")
		addrFlag   = flag.String("addr", "", "Listen address (overrides config)")
	)
	flag.Parse()

	if err := godotenv.Load(*envFlag); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("could not read %s: %s", *envFlag, err)
	}

	settings, err := loadSettings(*configFlag, *addrFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, settings); err != nil {
		log.Errorf("server stopped: %s", err)
		os.Exit(1)
	}
}

func loadSettings(path, addr string) (*config.Settings, error) {
	settings := config.DefaultSettings()
	if path != "" {
		var err error
		settings, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	settings.ApplyEnv()
	if addr != "" {
		settings.ListenAddr = addr
	}
	return settings, settings.Validate()
}

func serve(ctx context.Context, settings *config.Settings) error {
	if _, err := exec.LookPath(settings.GeneratorCommand[0]); err != nil {
		log.Warnf("generator %q not found: %s", settings.GeneratorCommand[0], err)
	}
	if settings.SMTPUsername == "" || settings.SMTPPassword == "" {
		log.Warnf("EMAIL_USER or EMAIL_PASS not set, deliveries will fail")
	}

	history, err := web.NewHistory(ctx, settings.HistoryTTL.Duration)
	if err != nil {
		return fmt.Errorf("history cache: %w", err)
	}
	defer history.Close()

	sender := mail.NewSMTPSender(mail.Config{
		Host:     settings.SMTPHost,
		Port:     settings.SMTPPort,
		Username: settings.SMTPUsername,
		Password: settings.SMTPPassword,
		From:     settings.MailFrom,
		Subject:  settings.MailSubject,
	})
	service := web.NewService(settings, task.NewRunner(), sender, history)

	srv := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           web.NewServer(service).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("listening on %s", settings.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.JobTimeout.Duration+10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

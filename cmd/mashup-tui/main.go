package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/handiism/mashup/internal/config"
	"github.com/handiism/mashup/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML or JSON settings file")
	flag.Parse()

	settings := config.DefaultSettings()
	if *configPath != "" {
		var err error
		if settings, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	settings.ApplyEnv()
	if wd, err := os.Getwd(); err == nil {
		settings.DetectLocalFFmpeg(wd)
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

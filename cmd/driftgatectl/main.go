package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/contentops/driftgate/internal/console"
	"github.com/contentops/driftgate/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to driftgate.toml (built-in defaults when empty)")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := console.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "driftgatectl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc, err := console.NewServiceWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "driftgatectl: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "driftgatectl: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bumpworks/bump-engine/pkg/app/worker"
	"github.com/bumpworks/bump-engine/pkg/config"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := worker.NewServer(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Worker exited with error: %v\n", err)
		os.Exit(1)
	}
}

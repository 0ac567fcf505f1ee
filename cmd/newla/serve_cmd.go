package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/04arvind/newla/pkg/gateway"
	"github.com/04arvind/newla/pkg/logger"
)

func serveCmd() {
	for _, arg := range os.Args[2:] {
		if arg == "--debug" || arg == "-d" {
			logger.SetLevel(logger.DEBUG)
			break
		}
	}

	cfg := mustLoadConfig()
	registry := mustRegistry(cfg)

	server, err := gateway.NewServer(cfg, registry)
	if err != nil {
		fmt.Printf("Error initializing gateway: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt)
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	fmt.Printf("%s Gateway on http://%s:%d (Ctrl+C to stop)\n", logo, cfg.Gateway.Host, cfg.Gateway.Port)
	if err := server.Start(ctx); err != nil {
		fmt.Printf("Gateway error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Gateway stopped")
}

package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mostlycached/grain/internal/config"
	"github.com/mostlycached/grain/internal/insight"
	"github.com/mostlycached/grain/internal/render"
	"github.com/mostlycached/grain/internal/server"
	"github.com/mostlycached/grain/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()

	// Check for ANTHROPIC_API_KEY env override
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Renderer.Provider = "anthropic"
		cfg.Renderer.AnthropicKey = key
	}

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Create the renderer and the insight analyzer. Without a renderer
	// the insight endpoints fail on demand, but the lifecycle API works.
	var renderer render.Client
	renderer, err = render.NewClient(cfg.Renderer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: renderer not configured (%v), insights degraded\n", err)
		renderer = &render.MockClient{Err: fmt.Errorf("renderer not configured")}
	} else {
		fmt.Fprintf(os.Stderr, "  renderer: %s\n", cfg.Renderer.Provider)
	}
	analyzer := insight.New(db, renderer, nil, 0)

	srv := server.New(db, analyzer, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "grain serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

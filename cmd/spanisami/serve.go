package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/config"
	"github.com/jonathan/spanisami/internal/cvflow"
	"github.com/jonathan/spanisami/internal/rendering"
	"github.com/jonathan/spanisami/internal/server"
	"github.com/jonathan/spanisami/internal/session"
	"github.com/jonathan/spanisami/internal/storage"
)

var (
	servePort   int
	serveStore  string
	serveSQLite string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the UI API server",
	Long:  `Start an HTTP server that holds one SpaniSami UI session per browser and exposes its actions as JSON endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "Session store driver: memory, sqlite or postgres")
	serveCmd.Flags().StringVar(&serveSQLite, "sqlite-path", "", "SQLite database file for the sqlite store")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("store") {
		cfg.StoreDriver = serveStore
	}
	if cmd.Flags().Changed("sqlite-path") {
		cfg.SQLitePath = serveSQLite
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := session.Open(ctx, session.Options{
		Driver:      cfg.StoreDriver,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if closer, ok := store.(session.Closer); ok {
		defer closer.Close()
	}

	passwords, err := config.NewPasswordConfig()
	if err != nil {
		return fmt.Errorf("failed to create password config: %w", err)
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	appDeps := app.Deps{
		Backend:           newBackendClient(cfg),
		Passwords:         passwords,
		PreferredLanguage: cfg.PreferredLanguage,
		VoiceMode:         cfg.VoiceMode,
		Renderer:          newRenderer(cfg),
	}
	if cfg.S3.Enabled() {
		archive, err := storage.NewS3Archive(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to create CV archive: %w", err)
		}
		appDeps.Archiver = archive
		log.Printf("[server] archiving exported CVs to s3://%s", cfg.S3.Bucket)
	}

	srv, err := server.New(server.Config{Port: cfg.Port, JWT: jwtConfig}, server.Deps{
		Store: store,
		App:   appDeps,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Printf("[server] backend %s, store %s", cfg.BackendURL, cfg.StoreDriver)
	return srv.Start(ctx)
}

// newRenderer returns nil when no Chrome binary is available, which leaves
// PDF export disabled.
func newRenderer(cfg config.Config) cvflow.Renderer {
	engine := rendering.NewChromeEngine(cfg.ChromePath)
	if !engine.Available() {
		log.Printf("[render] Chrome not found, PDF export disabled")
		return nil
	}
	return rendering.NewCVRenderer(engine)
}

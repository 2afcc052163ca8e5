package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"typing-challenge/config"
	"typing-challenge/game"
	"typing-challenge/handlers"
	"typing-challenge/services"
	"typing-challenge/store"
	"typing-challenge/utils"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "typing-challenge",
		Short:         "Ticket and referral backend for the typing challenge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), statsCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return fmt.Errorf("nothing to migrate for the memory driver")
			}
			db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			if err := store.Migrate(db); err != nil {
				return err
			}
			log.Println("✅ Database migrated")
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print user and referral statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			snap, err := services.NewStatsService(st).Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			snap.Campaign = cfg.Game.CampaignName
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Database.Driver == "memory" {
		log.Println("⚠️  Using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			return nil, err
		}
	}
	return store.NewGormStore(db), nil
}

func serve(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	sentences, err := game.NewSentences(cfg.Game.Sentences)
	if err != nil {
		return err
	}

	ticketService := services.NewTicketService(st, services.NewTicketGuard(cfg.Server.TicketGuard))
	statsService := services.NewStatsService(st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var uploader services.SnapshotUploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			return err
		}
		uploader = r2
	}
	reports := services.NewReportScheduler(statsService, uploader, cfg.Game.CampaignName, cfg.Report.Interval)
	if err := reports.Start(); err != nil {
		return err
	}
	defer func() {
		if err := reports.Shutdown(); err != nil {
			log.Printf("[Scheduler] Shutdown error: %v", err)
		}
	}()

	app := handlers.NewApp(handlers.Deps{
		Tickets:        ticketService,
		Stats:          statsService,
		Sentences:      sentences,
		ShareBaseURL:   cfg.Game.PublicBaseURL,
		AdminToken:     cfg.Server.AdminToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AccessLog:      true,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Server.Port)
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Server.Port)
	log.Printf("✅ Ticket guard: %s", cfg.Server.TicketGuard)
	log.Printf("✅ CORS configured for origins: %s", cfg.Server.AllowedOrigins)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

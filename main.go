package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/config"
	"github.com/kotsworld/mailsync/internal/database"
	"github.com/kotsworld/mailsync/internal/repository"
	"github.com/kotsworld/mailsync/server"
	"github.com/kotsworld/mailsync/services/ingestion"
	"github.com/kotsworld/mailsync/services/storage"
)

func main() {
	app := &cli.App{
		Name:  "mailsync",
		Usage: "Ingest tenancy documents and service tickets from the sent mailbox",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: migrate,
			},
			{
				Name:   "server",
				Usage:  "Start the scheduler and status server",
				Action: serve,
			},
			{
				Name:  "sync",
				Usage: "Run one pipeline once and print the result",
				Subcommands: []*cli.Command{
					{Name: "documents", Usage: "Sync contract documents", Action: syncDocuments},
					{Name: "tickets", Usage: "Sync service tickets", Action: syncTickets},
				},
			},
			{
				Name:  "backfill",
				Usage: "Import historical contract documents for a list of booking ids",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "file with one booking id per line", Required: true},
					&cli.IntFlag{Name: "limit", Usage: "process at most this many booking ids"},
					&cli.StringSliceFlag{Name: "folder", Usage: "folder to search, repeatable (default: EMAIL_FOLDERS)"},
				},
				Action: backfill,
			},
			{
				Name:  "presign",
				Usage: "Print a presigned download URL for a stored object",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Usage: "object key", Required: true},
					&cli.DurationFlag{Name: "ttl", Usage: "link lifetime (default: AWS_S3_PRESIGN_TTL)"},
				},
				Action: presign,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, errors.Wrap(err, "config initialization failed")
	}
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return nil, errors.Wrap(err, "database initialization failed")
	}
	return db, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	if err := repository.MigrateDB(cfg.DatabaseConfig, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	log.Println("Database migration completed successfully")
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Mailsync starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return errors.Wrap(err, "server setup failed")
	}
	if err := srv.Run(); err != nil {
		return errors.Wrap(err, "server startup failed")
	}

	log.Println("Shutdown complete")
	return nil
}

// withRuntime runs fn against a fully wired runtime and closes it afterwards.
func withRuntime(c *cli.Context, fn func(ctx context.Context, rt *server.Runtime) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	rt, err := server.NewRuntime(cfg, db)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signalContext(c)
	defer cancel()
	return fn(ctx, rt)
}

func syncDocuments(c *cli.Context) error {
	return withRuntime(c, func(ctx context.Context, rt *server.Runtime) error {
		result := rt.Services.IngestionService.SyncDocuments(ctx)
		if err := printJSON(result); err != nil {
			return err
		}
		if result.Failed() {
			return cli.Exit("", 1)
		}
		return nil
	})
}

func syncTickets(c *cli.Context) error {
	return withRuntime(c, func(ctx context.Context, rt *server.Runtime) error {
		result := rt.Services.IngestionService.SyncTickets(ctx)
		if err := printJSON(result); err != nil {
			return err
		}
		if result.Failed() {
			return cli.Exit("", 1)
		}
		return nil
	})
}

func backfill(c *cli.Context) error {
	file, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer file.Close()

	bookingIDs, err := ingestion.ReadBookingIDs(file)
	if err != nil {
		return errors.Wrap(err, "failed to read booking ids")
	}
	if limit := c.Int("limit"); limit > 0 && limit < len(bookingIDs) {
		bookingIDs = bookingIDs[:limit]
	}
	if len(bookingIDs) == 0 {
		return cli.Exit("no booking ids to process", 1)
	}

	return withRuntime(c, func(ctx context.Context, rt *server.Runtime) error {
		result := rt.Services.IngestionService.Backfill(ctx, bookingIDs, c.StringSlice("folder"))
		if err := printJSON(result); err != nil {
			return err
		}
		if result.Error != "" {
			return cli.Exit("", 1)
		}
		return nil
	})
}

func presign(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ttl := c.Duration("ttl")
	if ttl <= 0 {
		ttl = cfg.S3StorageConfig.PresignTTL
	}

	url, err := storage.NewS3StorageService(cfg.S3StorageConfig).Presign(c.Context, c.String("key"), ttl)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	mongoMigration "roombook/internal/migrations/mongo"
	roomsrepo "roombook/internal/rooms/repository"
	"roombook/pkg/config"
	mongodb "roombook/pkg/db/mongo"
)

const JobName = "mongo-migration"

type options struct {
	roomsFile   string
	skipIndexes bool
	timeout     time.Duration
}

func main() {
	var opts options
	pflag.StringVar(&opts.roomsFile, "rooms", "", "YAML room catalog to upsert after migrating")
	pflag.BoolVar(&opts.skipIndexes, "skip-indexes", false, "create collections and validators only")
	pflag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline for the job")
	pflag.Parse()

	cfg := config.Load(JobName)
	if err := run(cfg, opts); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}

func run(cfg *config.Config, opts options) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	cfg.SetMongo()
	defer cfg.GracefulShutdown(context.WithoutCancel(ctx))

	cfg.Log.Info("Starting Mongo migration job", "skip_indexes", opts.skipIndexes)
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log, mongoMigration.Options{SkipIndexes: opts.skipIndexes}); err != nil {
		return err
	}

	if opts.roomsFile == "" {
		return nil
	}

	f, err := os.Open(opts.roomsFile)
	if err != nil {
		return fmt.Errorf("failed to open room catalog: %w", err)
	}
	defer f.Close()

	rooms, err := roomsrepo.LoadCatalog(f)
	if err != nil {
		return err
	}

	txm := mongodb.NewTransactionManager(cfg.Client.Mongo)
	if err := mongoMigration.SeedRooms(ctx, txm, roomsrepo.NewMongoRoomRepository(cfg), rooms); err != nil {
		return err
	}
	cfg.Log.Info("Room catalog seeded", "path", opts.roomsFile, "rooms", len(rooms))
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/adapters/database"
	"github.com/zatekoja/bloodlink/internal/adapters/records"
	"github.com/zatekoja/bloodlink/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	"github.com/zatekoja/bloodlink/migrations"
	"github.com/zatekoja/bloodlink/pkg/config"
)

func main() {
	var (
		file    string
		migrate bool
		reset   bool
		dryRun  bool
	)
	flag.StringVar(&file, "file", "", "path to a JSON export with users, donors, recipients, hospitals, referrals, appointments and notifications")
	flag.BoolVar(&migrate, "migrate", false, "apply the schema before seeding")
	flag.BoolVar(&reset, "reset", false, "truncate all tables before seeding")
	flag.BoolVar(&dryRun, "dry-run", false, "decode and validate the export without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("bloodlink-seed", cfg.Log.Env, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ds *records.Dataset
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("failed to open export")
		}
		ds, err = records.Decode(f, time.Now())
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("failed to decode export")
		}
		log.Info().
			Int("users", len(ds.Users)).
			Int("donors", len(ds.Donors)).
			Int("recipients", len(ds.Recipients)).
			Int("hospitals", len(ds.Hospitals)).
			Int("referrals", len(ds.Referrals)).
			Int("appointments", len(ds.Appointments)).
			Int("notifications", len(ds.Notifications)).
			Int("rejected", len(ds.Rejected)).
			Msg("export decoded")
	}

	if dryRun {
		if ds != nil {
			for _, r := range ds.Rejected {
				fmt.Println(r.String())
			}
		}
		return
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pgClient.Close()

	if migrate {
		if err := migrations.Apply(ctx, pgClient.DB()); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	}

	if reset {
		log.Warn().Msg("truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				notifications,
				appointments,
				referrals,
				recipients,
				donors,
				hospitals,
				users
			CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("failed to truncate tables")
		}
	}

	if ds == nil {
		return
	}

	summary, err := records.Load(ctx, database.NewStore(pgClient), ds)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding interrupted")
	}
	log.Info().
		Int("written", summary.Total()).
		Interface("skipped", summary.Skipped).
		Msg("seeding complete")
}

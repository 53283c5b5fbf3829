// Command scribe-agent records meetings on command. It consumes start and
// stop commands from kafka, streams microphone audio into the configured
// sink and transcribes each finished recording.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/scribe/bootstrap"
	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/meeting"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/sse"
	"github.com/kbukum/scribe/storage/backends"
	"github.com/kbukum/scribe/version"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Record meetings on command and transcribe them",
		Version:      version.Get().String(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []config.LoaderOption{config.WithEnvPrefix("SCRIBE")}
			if configFile != "" {
				opts = append(opts, config.WithConfigFile(configFile))
			}
			if envFile != "" {
				opts = append(opts, config.WithEnvFile(envFile))
			}
			var cfg AgentConfig
			if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
				return err
			}
			return run(cmd.Context(), &cfg)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (default: ./cmd/scribe-agent/config.yml, ./config.yml)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file loaded before SCRIBE_* variables are bound")
	return cmd
}

func run(ctx context.Context, cfg *AgentConfig) error {
	app, err := bootstrap.NewApp(cfg, bootstrap.WithGracefulTimeout(cfg.ShutdownTimeout))
	if err != nil {
		return err
	}
	if err := register(app); err != nil {
		return err
	}
	if err := app.Run(ctx); err != nil {
		app.Logger.Error("Agent exited with error", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}

// register adds the components in dependency order.
func register(app *bootstrap.App[*AgentConfig]) error {
	cfg, log := app.Cfg, app.Logger

	db := database.NewComponent(cfg.Database, log).WithMigrations(meeting.Migrations, meeting.MigrationsDir)
	store := backends.NewComponent(&cfg.Storage, log)
	bus := kafka.NewComponent(cfg.Kafka, log)
	rec := &recorder{cfg: cfg, db: db, store: store, bus: bus, log: log}

	comps := []component.Component{
		observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment, log),
		db,
	}
	if cfg.Redis.Enabled {
		rec.cache = redis.NewComponent(cfg.Redis, log)
		comps = append(comps, rec.cache)
	}
	comps = append(comps, store, rec, bus)
	if cfg.Server.Enabled {
		rec.srv = server.New(cfg.Server, log)
		rec.srv.RegisterHealth(cfg.Name, app.Components.HealthAll)
		rec.hub = sse.NewHub(log)
		comps = append(comps, server.NewComponent(rec.srv), sse.NewComponent(rec.hub))
	}

	for _, c := range comps {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}
	return nil
}

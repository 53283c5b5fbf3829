package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/scribe/bootstrap"
	"github.com/kbukum/scribe/command"
	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/kafka/producer"
	"github.com/kbukum/scribe/meeting"
	"github.com/kbukum/scribe/recording"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/storage/backends"
)

// Meetings is the part of meeting.Service the commands use.
type Meetings interface {
	StartMeeting(ctx context.Context, title string) (*meeting.Meeting, error)
	StopMeeting(ctx context.Context, id string) (*meeting.Meeting, error)
	ForceStop(ctx context.Context, id string) (*meeting.Meeting, error)
	Get(ctx context.Context, id string) (*meeting.Meeting, error)
	List(ctx context.Context) ([]meeting.Meeting, error)
	Delete(ctx context.Context, id string) error
	OpenRecording(ctx context.Context, id string) (io.ReadCloser, *meeting.Meeting, error)
}

// StatusLoader reads the status an agent last published.
type StatusLoader interface {
	LoadStatus(ctx context.Context, agentID string) (*recording.Status, error)
}

// needs lists the optional backends a command talks to.
type needs uint8

const (
	needCommands needs = 1 << iota
	needStatus
)

// env is what a command runs against.
type env struct {
	meetings Meetings
	status   StatusLoader // nil unless needStatus
	agentID  string
	out      *output
}

// runFunc boots the backends n asks for and runs task against them.
type runFunc func(cmd *cobra.Command, n needs, task func(ctx context.Context, e *env) error) error

type rootFlags struct {
	configFile string
	envFile    string
	json       bool
}

func loadConfig(flags *rootFlags) (*CtlConfig, error) {
	opts := []config.LoaderOption{config.WithEnvPrefix("SCRIBE")}
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if flags.envFile != "" {
		opts = append(opts, config.WithEnvFile(flags.envFile))
	}
	var cfg CtlConfig
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// appRunner runs each command as a bootstrap task: components start, the
// task runs with a signal-aware context, components stop.
func appRunner(flags *rootFlags) runFunc {
	return func(cmd *cobra.Command, n needs, task func(ctx context.Context, e *env) error) error {
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}
		if n&needCommands != 0 && !cfg.Kafka.Enabled {
			return fmt.Errorf("kafka.enabled must be true to send commands to the agent")
		}
		if n&needStatus != 0 && !cfg.Redis.Enabled {
			return fmt.Errorf("redis.enabled must be true to read agent status")
		}

		app, err := bootstrap.NewApp(cfg)
		if err != nil {
			return err
		}
		log := app.Logger

		db := database.NewComponent(cfg.Database, log).WithMigrations(meeting.Migrations, meeting.MigrationsDir)
		store := backends.NewComponent(&cfg.Storage, log)
		if err := app.RegisterComponent(db); err != nil {
			return err
		}
		if err := app.RegisterComponent(store); err != nil {
			return err
		}

		var commands meeting.CommandPublisher
		if n&needCommands != 0 {
			p, err := producer.New(cfg.Kafka, log)
			if err != nil {
				return err
			}
			bus := kafka.NewComponent(cfg.Kafka, log)
			bus.SetProducer(p)
			if err := app.RegisterComponent(bus); err != nil {
				return err
			}
			commands = command.NewPublisher(p, cfg.Kafka.Topic, log)
		}

		var cache *redis.Component
		if n&needStatus != 0 {
			cache = redis.NewComponent(cfg.Redis, log)
			if err := app.RegisterComponent(cache); err != nil {
				return err
			}
		}

		return app.RunTask(cmd.Context(), func(ctx context.Context) error {
			e := &env{
				meetings: meeting.NewService(meeting.NewStore(db.DB()), commands, store.Storage(), log),
				agentID:  cfg.AgentID,
				out:      newOutput(cmd.OutOrStdout(), flags.json),
			}
			if cache != nil {
				e.status = redis.NewStatusStore(cache.Client(), cfg.AgentID, log)
			}
			return task(ctx, e)
		})
	}
}

package database

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/database/migration"
	"github.com/kbukum/scribe/logger"
)

// Component opens the database on Start and closes it on Stop.
type Component struct {
	cfg        Config
	log        *logger.Logger
	db         *DB
	migrations fs.FS
	dir        string
}

var _ component.Component = (*Component)(nil)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithMigrations sets the migration source applied on Start when
// Config.Migrate is true.
func (c *Component) WithMigrations(fsys fs.FS, dir string) *Component {
	c.migrations = fsys
	c.dir = dir
	return c
}

// DB is nil until Start succeeds.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if c.cfg.Migrate && c.migrations != nil {
		sqlDB, err := db.GormDB.DB()
		if err != nil {
			return fmt.Errorf("database migrate: %w", err)
		}
		version, err := migration.Up(sqlDB, c.migrations, c.dir)
		if err != nil {
			return fmt.Errorf("database migrate: %w", err)
		}
		c.log.Info("Migrations applied", map[string]interface{}{"version": version})
	}
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.db == nil:
		h.Status, h.Message = component.StatusUnhealthy, "database not initialized"
	default:
		if err := c.db.PingContext(ctx); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, fmt.Sprintf("ping failed: %v", err)
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := "sqlite " + c.cfg.DSN
	if c.cfg.Migrate {
		details += " migrate=on"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}

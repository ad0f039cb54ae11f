// Package di wires an engine.Database and an httpapi.Server together
// behind overridable factory functions, so tests can substitute either
// collaborator without touching call sites that only depend on Container.
package di

import (
	"github.com/ssargent/freyjatree/pkg/config"
	"github.com/ssargent/freyjatree/pkg/engine"
	"github.com/ssargent/freyjatree/pkg/httpapi"
)

// DatabaseFactory builds an engine.Database from configuration. Tests
// substitute a factory that returns an in-memory-backed instance.
type DatabaseFactory func(cfg config.Config) (*engine.Database, error)

// ServerFactory builds an httpapi.Server over an already-open database.
type ServerFactory func(db *engine.Database) *httpapi.Server

// Container holds the factories the CLI and any embedding program wire
// together; swapping a factory (e.g. in tests) never requires touching
// call sites that only depend on the Container.
type Container struct {
	databaseFactory DatabaseFactory
	serverFactory   ServerFactory
}

// NewContainer returns a Container using the real engine.Open and
// httpapi.NewServer implementations.
func NewContainer() *Container {
	return &Container{
		databaseFactory: func(cfg config.Config) (*engine.Database, error) {
			return engine.Open(cfg, engine.Options{})
		},
		serverFactory: httpapi.NewServer,
	}
}

// GetDatabaseFactory returns the configured database factory.
func (c *Container) GetDatabaseFactory() DatabaseFactory { return c.databaseFactory }

// GetServerFactory returns the configured server factory.
func (c *Container) GetServerFactory() ServerFactory { return c.serverFactory }

// SetDatabaseFactory overrides the database factory, for testing.
func (c *Container) SetDatabaseFactory(f DatabaseFactory) { c.databaseFactory = f }

// SetServerFactory overrides the server factory, for testing.
func (c *Container) SetServerFactory(f ServerFactory) { c.serverFactory = f }

// Open builds a database and its inspection server together from cfg.
func (c *Container) Open(cfg config.Config) (*engine.Database, *httpapi.Server, error) {
	db, err := c.databaseFactory(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, c.serverFactory(db), nil
}

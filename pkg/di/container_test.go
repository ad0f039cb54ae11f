package di_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/freyjatree/pkg/config"
	"github.com/ssargent/freyjatree/pkg/di"
	"github.com/ssargent/freyjatree/pkg/engine"
)

func TestContainerOpenUsesFactories(t *testing.T) {
	c := di.NewContainer()

	cfg := *config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	db, server, err := c.Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)
	require.NotNil(t, server)
	t.Cleanup(func() { _ = db.Close() })
}

func TestContainerFactoriesOverridable(t *testing.T) {
	c := di.NewContainer()
	called := false
	c.SetDatabaseFactory(func(cfg config.Config) (*engine.Database, error) {
		called = true
		return engine.Open(cfg, engine.Options{})
	})

	cfg := *config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	db, _, err := c.Open(cfg)
	require.NoError(t, err)
	require.True(t, called)
	t.Cleanup(func() { _ = db.Close() })
}

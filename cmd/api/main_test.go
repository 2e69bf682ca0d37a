package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-backend/internal/bootstrap"
	"invoice-backend/internal/shared/config"
)

func testConfig(t *testing.T, port string) config.Config {
	t.Helper()
	return config.Config{
		Env:                  "dev",
		Port:                 port,
		ObjectStoreType:      "local",
		LocalStoreDir:        t.TempDir(),
		DefaultProvider:      "groq",
		MaxUploadBytes:       1 << 20,
		ExtractRatePerMinute: 60,
		CORSAllowOrigin:      []string{"*"},
	}
}

// trackingBuild builds a real app and records when it is closed.
func trackingBuild(closed *bool) func(config.Config) (*bootstrap.App, error) {
	return func(cfg config.Config) (*bootstrap.App, error) {
		app, err := bootstrap.Build(cfg)
		if err != nil {
			return nil, err
		}
		app.OnClose(func() error {
			*closed = true
			return nil
		})
		return app, nil
	}
}

func TestRunClosesAppWhenListenFails(t *testing.T) {
	closed := false
	err := run(context.Background(), testConfig(t, "-1"), trackingBuild(&closed))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve :-1")
	assert.True(t, closed)
}

func TestRunClosesAppOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	closed := false
	err := run(ctx, testConfig(t, "0"), trackingBuild(&closed))
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestRunReturnsBootstrapError(t *testing.T) {
	boom := errors.New("no repository configured")
	err := run(context.Background(), testConfig(t, "0"), func(config.Config) (*bootstrap.App, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bootstrap")
}

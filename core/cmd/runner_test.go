package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/seatwatch/core/config"
	coretelegram "github.com/m3rciful/seatwatch/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct{ started, stopped *bool }

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { *a.started = true; return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { *a.stopped = true; return nil },
	}, nil
}

func TestRunWiresLifecycle(t *testing.T) {
	t.Setenv("SEATWATCH_TEST_CONFIG", "config.yaml")
	var started, stopped bool
	var loadedPath string
	err := Run(Options{
		ConfigEnvVar: "SEATWATCH_TEST_CONFIG",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return app{&started, &stopped}, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", loadedPath)
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestRunRequiresConfigPath(t *testing.T) {
	t.Setenv("SEATWATCH_TEST_CONFIG", "")
	err := Run(Options{
		ConfigEnvVar: "SEATWATCH_TEST_CONFIG",
		LoadConfig:   func(string) (ConfigCarrier, error) { return nil, errors.New("unreachable") },
		Bootstrap:    func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.ErrorContains(t, err, "config path")
}

package command

import (
	"context"
	"testing"

	"feedback_automation/domain/entities"
	"feedback_automation/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	configPath string
	served     int
	ran        int
	cfg        config.Config
	creds      entities.Credentials
}

func (r *recorder) deps() Deps {
	return Deps{
		LoadConfig: func(path string) (config.Config, error) {
			r.configPath = path
			return config.Default(), nil
		},
		Serve: func(ctx context.Context, cfg config.Config) error {
			r.served++
			r.cfg = cfg
			return nil
		},
		RunOnce: func(ctx context.Context, cfg config.Config, creds entities.Credentials) error {
			r.ran++
			r.cfg = cfg
			r.creds = creds
			return nil
		},
	}
}

func TestBuildApp_DefaultCommandIsServe(t *testing.T) {
	rec := &recorder{}
	app := BuildApp(rec.deps())

	require.NoError(t, app.RunContext(context.Background(), []string{"feedback"}))
	assert.Equal(t, 1, rec.served)
	assert.Zero(t, rec.ran)
}

func TestBuildApp_ServeWithGlobalFlags(t *testing.T) {
	rec := &recorder{}
	app := BuildApp(rec.deps())

	err := app.RunContext(context.Background(), []string{"feedback", "--config", "feedback.yaml", "--log-level", "debug", "serve"})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.served)
	assert.Equal(t, "feedback.yaml", rec.configPath)
	assert.Equal(t, "debug", rec.cfg.Log.Level)
}

func TestBuildApp_RunAppliesOverrides(t *testing.T) {
	rec := &recorder{}
	app := BuildApp(rec.deps())

	err := app.RunContext(context.Background(), []string{
		"feedback", "run",
		"--username", "u1", "--password", "p1",
		"--submit", "--term", "2", "--rating", "5", "--driver", "rod",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ran)
	assert.Equal(t, entities.Credentials{Username: "u1", Password: "p1"}, rec.creds)
	assert.True(t, rec.cfg.Automation.SubmitForm)
	assert.Equal(t, "2", rec.cfg.Automation.TermValue)
	assert.Equal(t, 5, rec.cfg.Automation.DefaultRating)
	assert.Equal(t, entities.DriverRod, rec.cfg.Browser.Driver)
	assert.True(t, rec.cfg.Browser.Headless)
}

func TestBuildApp_RunReadsCredentialsFromEnv(t *testing.T) {
	t.Setenv("FEEDBACK_USERNAME", "env-user")
	t.Setenv("FEEDBACK_PASSWORD", "env-pass")
	rec := &recorder{}
	app := BuildApp(rec.deps())

	require.NoError(t, app.RunContext(context.Background(), []string{"feedback", "run"}))
	assert.Equal(t, entities.Credentials{Username: "env-user", Password: "env-pass"}, rec.creds)
}

func TestBuildApp_RunRequiresCredentials(t *testing.T) {
	t.Setenv("FEEDBACK_USERNAME", "")
	t.Setenv("FEEDBACK_PASSWORD", "")
	rec := &recorder{}
	app := BuildApp(rec.deps())

	err := app.RunContext(context.Background(), []string{"feedback", "run", "--username", "u1"})
	assert.ErrorIs(t, err, entities.ErrMissingCredentials)
	assert.Zero(t, rec.ran)
}

func TestBuildApp_RunRejectsInvalidOverride(t *testing.T) {
	rec := &recorder{}
	app := BuildApp(rec.deps())

	err := app.RunContext(context.Background(), []string{"feedback", "run", "-u", "u1", "-p", "p1", "--driver", "lynx"})
	assert.Error(t, err)
	assert.Zero(t, rec.ran)
}

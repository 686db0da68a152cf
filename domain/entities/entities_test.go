package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAutomationConfigIsValid(t *testing.T) {
	cfg := DefaultAutomationConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "1", cfg.TermValue)
	assert.Equal(t, 4, cfg.DefaultRating)
	assert.False(t, cfg.SubmitForm)
}

func TestAutomationConfigValidateCollectsErrors(t *testing.T) {
	cfg := DefaultAutomationConfig()
	cfg.LoginURL = " "
	cfg.Selectors.IframeName = ""
	cfg.DefaultRating = 0
	cfg.WaitTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login url is required")
	assert.Contains(t, err.Error(), "selector iframe_name is required")
	assert.Contains(t, err.Error(), "default rating must be positive")
	assert.Contains(t, err.Error(), "wait timeout must be positive")
}

func TestBrowserOptions(t *testing.T) {
	opts := DefaultBrowserOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, []string{
		"disable-dev-shm-usage",
		"window-size=1920,1080",
		"no-sandbox",
		"disable-gpu",
	}, opts.ChromeArgs())

	opts.NoSandbox = false
	opts.DisableGPU = false
	opts.ExtraArgs = []string{"--lang=en-US", "  ", "mute-audio"}
	assert.Equal(t, []string{
		"disable-dev-shm-usage",
		"window-size=1920,1080",
		"lang=en-US",
		"mute-audio",
	}, opts.ChromeArgs())

	opts.Driver = "netscape"
	assert.Error(t, opts.Validate())
}

func TestCredentialsValidate(t *testing.T) {
	assert.NoError(t, Credentials{Username: "u1", Password: "p1"}.Validate())
	assert.NoError(t, Credentials{Username: "  ", Password: "p1"}.Validate())
	assert.ErrorIs(t, Credentials{Password: "p1"}.Validate(), ErrMissingCredentials)
	assert.ErrorIs(t, Credentials{Username: "u1"}.Validate(), ErrMissingCredentials)
}

func TestMessageString(t *testing.T) {
	assert.Equal(t, "Initializing automation...\n", Progress("Initializing automation...").String())
	assert.Equal(t, "done\n", Success("done\n").String())
	assert.True(t, Failure("x").Failed())
	assert.True(t, Message{Kind: MessageCritical}.Failed())
	assert.False(t, Status("x").Failed())
	assert.False(t, Warning("x").Failed())
}

func TestClassifyFailure(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		err  error
		want FailureKind
	}{
		{nil, ""},
		{NewAutomationError(FailureTimeout, "wait", base), FailureTimeout},
		{fmt.Errorf("step: %w", NewAutomationError(FailureElementNotFound, "find", base)), FailureElementNotFound},
		{NewAutomationError(FailureNavigation, "navigate", nil), FailureNavigation},
		{fmt.Errorf("wrapped: %w", ErrTimeout), FailureTimeout},
		{base, FailureUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyFailure(tt.err))
	}
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "id=txtId2", ByID("txtId2").String())
	assert.Equal(t, "link_text=FEEDBACK", ByLinkText("FEEDBACK").String())
	assert.Equal(t, LocateByXPath, RadioWithValue("4").By)
}

package command

import (
	"context"
	"fmt"
	"os"

	"feedback_automation/application/automation"
	"feedback_automation/domain/entities"
	"feedback_automation/infrastructure/browser"
	"feedback_automation/infrastructure/config"
	"feedback_automation/infrastructure/logging"
	"feedback_automation/infrastructure/security"
	"feedback_automation/presentation/terminal"
	"feedback_automation/presentation/web"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultDeps wires the real logger, browser driver, runner and front ends.
func DefaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		Serve:      Serve,
		RunOnce:    RunOnce,
	}
}

func newLogger(cfg config.Config) (*logrus.Logger, error) {
	return logging.NewLogger(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: os.Stderr,
	})
}

// Serve runs the web front end until ctx is canceled.
func Serve(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	driver, err := browser.NewDriver(cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := browser.Shutdown(driver); err != nil {
			logger.WithError(err).Warn("browser driver shutdown failed")
		}
	}()

	runner := automation.NewRunner(driver, cfg.Automation, logger)
	runner.OnDone(web.ObserveRun)

	store := security.NewCredentialStore(logger)
	if err := store.Add(cfg.Server.Username, cfg.Server.Password); err != nil {
		return fmt.Errorf("register front-end user: %w", err)
	}

	sessions, err := security.NewSessionManager(cfg.Server.SecretKey, cfg.Server.SessionTTL, cfg.Server.SecureCookies)
	if err != nil {
		return err
	}
	if sessions.Ephemeral() {
		logger.Warn("APP_SECRET_KEY is not set; using a random key, sessions end on restart")
	}

	server := web.NewServer(cfg.Server, runner, store, sessions, logger)

	logger.WithFields(logrus.Fields{
		"driver":   driver.Name(),
		"headless": cfg.Browser.Headless,
		"term":     cfg.Automation.TermValue,
		"submit":   cfg.Automation.SubmitForm,
	}).Info("feedback automation configured")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		if err := browser.Prepare(driver); err != nil {
			logger.WithError(err).Warn("browser driver warm-up failed; the first run will retry")
		}
		return nil
	})
	return g.Wait()
}

// RunOnce executes a single automation run and prints it to stdout.
func RunOnce(ctx context.Context, cfg config.Config, creds entities.Credentials) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	driver, err := browser.NewDriver(cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := browser.Shutdown(driver); err != nil {
			logger.WithError(err).Warn("browser driver shutdown failed")
		}
	}()

	runner := automation.NewRunner(driver, cfg.Automation, logger)
	return terminal.NewTerminalInterface(runner, os.Stdout).Run(ctx, creds)
}

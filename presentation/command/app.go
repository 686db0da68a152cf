package command

import (
	"context"
	"errors"
	"fmt"

	"feedback_automation/domain/entities"
	"feedback_automation/infrastructure/config"

	"github.com/urfave/cli/v2"
)

// Deps are the entry points the command tree dispatches to.
type Deps struct {
	LoadConfig func(path string) (config.Config, error)
	Serve      func(ctx context.Context, cfg config.Config) error
	RunOnce    func(ctx context.Context, cfg config.Config, creds entities.Credentials) error
}

func BuildApp(deps Deps) *cli.App {
	serve := func(c *cli.Context) error {
		cfg, err := loadConfig(c, deps)
		if err != nil {
			return err
		}
		if deps.Serve == nil {
			return errors.New("serve is not configured")
		}
		return deps.Serve(c.Context, cfg)
	}

	return &cli.App{
		Name:  "feedback",
		Usage: "fill the university feedback form in a real browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"FEEDBACK_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text or json)",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the web front end",
				Action: serve,
			},
			{
				Name:  "run",
				Usage: "run the automation once and print progress to the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "portal username",
						EnvVars: []string{"FEEDBACK_USERNAME"},
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "portal password",
						EnvVars: []string{"FEEDBACK_PASSWORD"},
					},
					&cli.BoolFlag{Name: "submit", Usage: "submit the form after filling it"},
					&cli.StringFlag{Name: "term", Usage: "term value to select"},
					&cli.IntFlag{Name: "rating", Usage: "rating to give every question"},
					&cli.BoolFlag{Name: "headless", Usage: "run the browser without a window"},
					&cli.StringFlag{Name: "driver", Usage: "browser driver (playwright, rod, selenium)"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c, deps)
					if err != nil {
						return err
					}
					if err := applyRunFlags(c, &cfg); err != nil {
						return err
					}
					if deps.RunOnce == nil {
						return errors.New("run is not configured")
					}
					creds := entities.Credentials{
						Username: c.String("username"),
						Password: c.String("password"),
					}
					if err := creds.Validate(); err != nil {
						return fmt.Errorf("%w: pass --username/--password or set FEEDBACK_USERNAME/FEEDBACK_PASSWORD", err)
					}
					return deps.RunOnce(c.Context, cfg, creds)
				},
			},
		},
	}
}

func loadConfig(c *cli.Context, deps Deps) (config.Config, error) {
	load := deps.LoadConfig
	if load == nil {
		load = config.Load
	}
	cfg, err := load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	return cfg, nil
}

// applyRunFlags overlays explicitly set run flags onto cfg and revalidates it.
func applyRunFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("submit") {
		cfg.Automation.SubmitForm = c.Bool("submit")
	}
	if c.IsSet("term") {
		cfg.Automation.TermValue = c.String("term")
	}
	if c.IsSet("rating") {
		cfg.Automation.DefaultRating = c.Int("rating")
	}
	if c.IsSet("headless") {
		cfg.Browser.Headless = c.Bool("headless")
	}
	if c.IsSet("driver") {
		cfg.Browser.Driver = c.String("driver")
	}
	return cfg.Validate()
}

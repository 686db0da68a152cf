package browser

import (
	"fmt"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// NewDriver - builds the browser driver named by opts.Driver
func NewDriver(opts entities.BrowserOptions, logger *logrus.Logger) (interfaces.BrowserDriver, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid browser options: %w", err)
	}

	switch opts.Driver {
	case entities.DriverPlaywright:
		return NewPlaywrightDriver(opts, logger), nil
	case entities.DriverRod:
		return NewRodDriver(opts, logger), nil
	case entities.DriverSelenium:
		d, err := NewSeleniumDriver(opts, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
}

// Prepare - does any slow one-time driver setup before the first session
func Prepare(d interfaces.BrowserDriver) error {
	if p, ok := d.(interface{ Prepare() error }); ok {
		return p.Prepare()
	}
	return nil
}

// Shutdown - releases process-wide driver resources, if the driver holds any
func Shutdown(d interfaces.BrowserDriver) error {
	if s, ok := d.(interface{ Shutdown() error }); ok {
		return s.Shutdown()
	}
	return nil
}

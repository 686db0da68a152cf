package interfaces

import (
	"context"

	"feedback_automation/domain/entities"
)

// BrowserDriver launches browser sessions
type BrowserDriver interface {
	// Open starts a fresh browser session owned by the caller
	Open(ctx context.Context) (BrowserSession, error)

	// Name returns the driver identifier used in configuration
	Name() string
}

// BrowserSession is a single browser window scoped to one automation run.
// Wait methods block until the condition holds or the session's wait timeout
// elapses, in which case the error matches entities.ErrTimeout.
type BrowserSession interface {
	// Navigate loads url in the top-level page
	Navigate(ctx context.Context, url string) error

	// WaitPresent waits until an element matching loc is attached to the DOM
	WaitPresent(ctx context.Context, loc entities.Locator) (Element, error)

	// WaitClickable waits until an element matching loc is visible and enabled
	WaitClickable(ctx context.Context, loc entities.Locator) (Element, error)

	// SwitchToFrame waits for the named iframe and moves the lookup context into it
	SwitchToFrame(ctx context.Context, name string) error

	// Find returns the first element matching loc without waiting
	Find(ctx context.Context, loc entities.Locator) (Element, error)

	// FindAll returns every element matching loc in document order
	FindAll(ctx context.Context, loc entities.Locator) ([]Element, error)

	// Close releases the browser; safe to call more than once
	Close() error
}

// Element is a handle to a DOM node inside a BrowserSession.
type Element interface {
	// Type sends text to the element as keyboard input
	Type(ctx context.Context, text string) error

	// Click performs a regular pointer click
	Click(ctx context.Context) error

	// ScriptClick calls element.click() in page JavaScript, bypassing overlays
	ScriptClick(ctx context.Context) error

	// Text returns the rendered text of the element
	Text(ctx context.Context) (string, error)

	// Attribute returns the named attribute, or "" when absent
	Attribute(ctx context.Context, name string) (string, error)

	// SelectValue selects the option with the given value in a <select>
	SelectValue(ctx context.Context, value string) error

	// Find returns the first descendant matching loc without waiting
	Find(ctx context.Context, loc entities.Locator) (Element, error)

	// FindAll returns every descendant matching loc in document order
	FindAll(ctx context.Context, loc entities.Locator) ([]Element, error)
}

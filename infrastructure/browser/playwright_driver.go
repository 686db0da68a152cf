package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

const pollInterval = 250 * time.Millisecond

// PlaywrightDriver starts one playwright driver process for the life of the
// program and launches a fresh Chromium for every session.
type PlaywrightDriver struct {
	opts   entities.BrowserOptions
	logger *logrus.Logger

	mu sync.Mutex
	pw *playwright.Playwright
}

// NewPlaywrightDriver - creates a playwright backed browser driver
func NewPlaywrightDriver(opts entities.BrowserOptions, logger *logrus.Logger) *PlaywrightDriver {
	return &PlaywrightDriver{opts: opts, logger: logger}
}

func (d *PlaywrightDriver) Name() string { return entities.DriverPlaywright }

// start - installs and runs playwright on first use
func (d *PlaywrightDriver) start() (*playwright.Playwright, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw != nil {
		return d.pw, nil
	}

	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	d.pw = pw
	return pw, nil
}

// Open - launches a browser and returns a session on a blank page
func (d *PlaywrightDriver) Open(ctx context.Context) (interfaces.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := d.start()
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, 8)
	for _, a := range d.opts.ChromeArgs() {
		args = append(args, "--"+a)
	}
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.opts.Headless),
		Args:     args,
	}
	if d.opts.BinaryPath != "" {
		launchOpts.ExecutablePath = playwright.String(d.opts.BinaryPath)
	}
	if d.opts.UserDataDir != "" {
		d.logger.Warn("playwright driver ignores user data dir; sessions start from a clean profile")
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  d.opts.WindowWidth,
			Height: d.opts.WindowHeight,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	timeout := float64(d.opts.WaitTimeout.Milliseconds())
	page.SetDefaultTimeout(timeout)
	page.OnDialog(func(dialog playwright.Dialog) {
		d.logger.WithField("message", dialog.Message()).Info("accepting page dialog")
		dialog.Accept()
	})

	return &playwrightSession{
		browser: browser,
		bctx:    bctx,
		page:    page,
		timeout: timeout,
	}, nil
}

// Prepare - installs and starts playwright ahead of the first session
func (d *PlaywrightDriver) Prepare() error {
	_, err := d.start()
	return err
}

// Shutdown - stops the playwright driver process
func (d *PlaywrightDriver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw == nil {
		return nil
	}
	err := d.pw.Stop()
	d.pw = nil
	return err
}

type playwrightSession struct {
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	frame   playwright.FrameLocator
	timeout float64

	closeOnce sync.Once
	closeErr  error
}

func isPlaywrightTimeout(err error) bool {
	return errors.Is(err, playwright.ErrTimeout)
}

// locator - resolves a selector against the current frame, or the page
func (s *playwrightSession) locator(sel string) playwright.Locator {
	if s.frame != nil {
		return s.frame.Locator(sel)
	}
	return s.page.Locator(sel)
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(s.timeout),
	})
	return classify("navigate", err, isPlaywrightTimeout, entities.FailureNavigation)
}

func (s *playwrightSession) WaitPresent(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	return s.wait(ctx, loc, playwright.WaitForSelectorStateAttached, false)
}

func (s *playwrightSession) WaitClickable(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	return s.wait(ctx, loc, playwright.WaitForSelectorStateVisible, true)
}

func (s *playwrightSession) wait(ctx context.Context, loc entities.Locator, state *playwright.WaitForSelectorState, enabled bool) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := playwrightSelector(loc)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(time.Duration(s.timeout) * time.Millisecond)
	l := s.locator(sel).First()
	err = l.WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: playwright.Float(s.timeout),
	})
	if err != nil {
		return nil, classify("wait "+loc.String(), err, isPlaywrightTimeout, entities.FailureElementNotFound)
	}

	for enabled {
		ok, err := l.IsEnabled()
		if err != nil {
			return nil, classify("wait "+loc.String(), err, isPlaywrightTimeout, entities.FailureUnknown)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, timeoutError("wait "+loc.String(), loc)
		}
		if err := sleepContext(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
	return &playwrightElement{loc: l, timeout: s.timeout}, nil
}

func (s *playwrightSession) SwitchToFrame(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel := "iframe[name=" + strconv.Quote(name) + "]"
	op := "switch to frame " + name

	err := s.locator(sel).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(s.timeout),
	})
	if err != nil {
		return classify(op, err, isPlaywrightTimeout, entities.FailureElementNotFound)
	}

	var frame playwright.FrameLocator
	if s.frame != nil {
		frame = s.frame.FrameLocator(sel)
	} else {
		frame = s.page.FrameLocator(sel)
	}
	err = frame.Locator("body").WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(s.timeout),
	})
	if err != nil {
		return classify(op, err, isPlaywrightTimeout, entities.FailureUnknown)
	}
	s.frame = frame
	return nil
}

func (s *playwrightSession) Find(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := playwrightSelector(loc)
	if err != nil {
		return nil, err
	}
	return firstPlaywrightMatch(s.locator(sel), loc, s.timeout)
}

func (s *playwrightSession) FindAll(ctx context.Context, loc entities.Locator) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := playwrightSelector(loc)
	if err != nil {
		return nil, err
	}
	return allPlaywrightMatches(s.locator(sel), loc, s.timeout)
}

// Close - closes the browser context and the browser
func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.bctx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func firstPlaywrightMatch(l playwright.Locator, loc entities.Locator, timeout float64) (interfaces.Element, error) {
	n, err := l.Count()
	if err != nil {
		return nil, classify("find "+loc.String(), err, isPlaywrightTimeout, entities.FailureUnknown)
	}
	if n == 0 {
		return nil, notFoundError("find", loc)
	}
	return &playwrightElement{loc: l.First(), timeout: timeout}, nil
}

func allPlaywrightMatches(l playwright.Locator, loc entities.Locator, timeout float64) ([]interfaces.Element, error) {
	all, err := l.All()
	if err != nil {
		return nil, classify("find all "+loc.String(), err, isPlaywrightTimeout, entities.FailureUnknown)
	}
	out := make([]interfaces.Element, 0, len(all))
	for _, item := range all {
		out = append(out, &playwrightElement{loc: item, timeout: timeout})
	}
	return out, nil
}

type playwrightElement struct {
	loc     playwright.Locator
	timeout float64
}

func (e *playwrightElement) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.loc.Fill(text, playwright.LocatorFillOptions{Timeout: playwright.Float(e.timeout)})
	return classify("type", err, isPlaywrightTimeout, entities.FailureUnknown)
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(e.timeout)})
	return classify("click", err, isPlaywrightTimeout, entities.FailureUnknown)
}

// ScriptClick - fires click() inside the page instead of a pointer event
func (e *playwrightElement) ScriptClick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.Evaluate("el => el.click()", nil)
	return classify("script click", err, isPlaywrightTimeout, entities.FailureUnknown)
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.loc.InnerText()
	return text, classify("text", err, isPlaywrightTimeout, entities.FailureUnknown)
}

func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.GetAttribute(name)
	return v, classify("attribute "+name, err, isPlaywrightTimeout, entities.FailureUnknown)
}

func (e *playwrightElement) SelectValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{Values: playwright.StringSlice(value)})
	return classify("select "+value, err, isPlaywrightTimeout, entities.FailureUnknown)
}

func (e *playwrightElement) Find(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := playwrightSelector(loc)
	if err != nil {
		return nil, err
	}
	return firstPlaywrightMatch(e.loc.Locator(sel), loc, e.timeout)
}

func (e *playwrightElement) FindAll(ctx context.Context, loc entities.Locator) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := playwrightSelector(loc)
	if err != nil {
		return nil, err
	}
	return allPlaywrightMatches(e.loc.Locator(sel), loc, e.timeout)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

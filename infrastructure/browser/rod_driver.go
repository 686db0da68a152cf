package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// RodDriver drives Chrome over the DevTools protocol.
type RodDriver struct {
	opts   entities.BrowserOptions
	logger *logrus.Logger
}

// NewRodDriver - creates a rod backed browser driver
func NewRodDriver(opts entities.BrowserOptions, logger *logrus.Logger) *RodDriver {
	return &RodDriver{opts: opts, logger: logger}
}

func (d *RodDriver) Name() string { return entities.DriverRod }

// Open - launches Chrome and connects to it
func (d *RodDriver) Open(ctx context.Context) (interfaces.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().Headless(d.opts.Headless)
	for _, arg := range d.opts.ChromeArgs() {
		name, value, ok := strings.Cut(arg, "=")
		if ok {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	if d.opts.BinaryPath != "" {
		l = l.Bin(d.opts.BinaryPath)
	}
	if d.opts.UserDataDir != "" {
		l = l.UserDataDir(d.opts.UserDataDir)
	}

	ownsDir := d.opts.UserDataDir == ""

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		releaseChrome(l, err, ownsDir)
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		releaseChrome(l, browser.Close(), ownsDir)
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	d.logger.WithField("control_url", url).Debug("chrome launched")

	return &rodSession{
		proc:         l,
		closeBrowser: browser.Close,
		page:         page,
		scope:        page,
		timeout:      d.opts.WaitTimeout,
		ownsDir:      ownsDir,
		logger:       d.logger,
	}, nil
}

// chromeProcess is the part of *launcher.Launcher a session needs to stop Chrome.
type chromeProcess interface {
	Kill()
	Cleanup()
}

// releaseChrome - stops the Chrome process and removes a profile dir the session created.
// Cleanup waits for the process to exit, so Chrome is killed first unless it closed cleanly.
func releaseChrome(proc chromeProcess, closeErr error, ownsDir bool) {
	if closeErr != nil || !ownsDir {
		proc.Kill()
	}
	if ownsDir {
		proc.Cleanup()
	}
}

type rodSession struct {
	proc         chromeProcess
	closeBrowser func() error
	page         *rod.Page
	scope        *rod.Page
	timeout      time.Duration
	ownsDir      bool
	logger       *logrus.Logger

	closeOnce sync.Once
	closeErr  error
}

func isRodNotFound(err error) bool {
	var nf *rod.ElementNotFoundError
	return errors.As(err, &nf)
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p := s.page.Context(wctx)
	if err := p.Navigate(url); err != nil {
		return classify("navigate", err, nil, entities.FailureNavigation)
	}
	if err := p.WaitLoad(); err != nil {
		return classify("navigate", err, nil, entities.FailureNavigation)
	}
	s.scope = s.page
	return nil
}

// query - runs a waiting lookup in the current scope
func (s *rodSession) query(ctx context.Context, loc entities.Locator) (*rod.Element, error) {
	q, xpath, err := rodQuery(loc)
	if err != nil {
		return nil, err
	}
	p := s.scope.Context(ctx)
	if xpath {
		return p.ElementX(q)
	}
	return p.Element(q)
}

func (s *rodSession) WaitPresent(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	el, err := s.query(wctx, loc)
	if err != nil {
		return nil, s.waitError(ctx, "wait "+loc.String(), loc, err)
	}
	return &rodElement{el: el}, nil
}

func (s *rodSession) WaitClickable(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	el, err := s.query(wctx, loc)
	if err == nil {
		err = el.Context(wctx).WaitVisible()
	}
	if err == nil {
		err = el.Context(wctx).WaitEnabled()
	}
	if err != nil {
		return nil, s.waitError(ctx, "wait "+loc.String(), loc, err)
	}
	return &rodElement{el: el}, nil
}

// waitError - reports an expired wait as a timeout unless the caller's own context ended
func (s *rodSession) waitError(ctx context.Context, op string, loc entities.Locator, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(op, loc)
	}
	return classify(op, err, nil, entities.FailureUnknown)
}

func (s *rodSession) SwitchToFrame(ctx context.Context, name string) error {
	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	loc := entities.ByCSS("iframe[name=" + strconv.Quote(name) + "]")
	op := "switch to frame " + name

	iframe, err := s.query(wctx, loc)
	if err != nil {
		return s.waitError(ctx, op, loc, err)
	}
	frame, err := iframe.Context(wctx).Frame()
	if err != nil {
		return s.waitError(ctx, op, loc, err)
	}
	if err := frame.Context(wctx).WaitLoad(); err != nil {
		return s.waitError(ctx, op, loc, err)
	}
	s.scope = frame
	return nil
}

func (s *rodSession) Find(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	q, xpath, err := rodQuery(loc)
	if err != nil {
		return nil, err
	}
	p := s.scope.Context(ctx)
	var (
		has bool
		el  *rod.Element
	)
	if xpath {
		has, el, err = p.HasX(q)
	} else {
		has, el, err = p.Has(q)
	}
	if err != nil {
		return nil, classify("find "+loc.String(), err, nil, entities.FailureUnknown)
	}
	if !has {
		return nil, notFoundError("find", loc)
	}
	return &rodElement{el: el}, nil
}

func (s *rodSession) FindAll(ctx context.Context, loc entities.Locator) ([]interfaces.Element, error) {
	q, xpath, err := rodQuery(loc)
	if err != nil {
		return nil, err
	}
	p := s.scope.Context(ctx)
	var els rod.Elements
	if xpath {
		els, err = p.ElementsX(q)
	} else {
		els, err = p.Elements(q)
	}
	if err != nil {
		return nil, classify("find all "+loc.String(), err, nil, entities.FailureUnknown)
	}
	return wrapRodElements(els), nil
}

// Close - closes Chrome and removes the temporary profile
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.closeBrowser()
		releaseChrome(s.proc, s.closeErr, s.ownsDir)
		if s.closeErr != nil {
			s.logger.WithError(s.closeErr).Debug("chrome close returned an error")
		}
	})
	return s.closeErr
}

func wrapRodElements(els rod.Elements) []interfaces.Element {
	out := make([]interfaces.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Type(ctx context.Context, text string) error {
	err := e.el.Context(ctx).Input(text)
	return classify("type", err, nil, entities.FailureUnknown)
}

func (e *rodElement) Click(ctx context.Context) error {
	err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
	return classify("click", err, nil, entities.FailureUnknown)
}

// ScriptClick - fires click() inside the page instead of a pointer event
func (e *rodElement) ScriptClick(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return classify("script click", err, nil, entities.FailureUnknown)
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	return text, classify("text", err, nil, entities.FailureUnknown)
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", classify("attribute "+name, err, nil, entities.FailureUnknown)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *rodElement) SelectValue(ctx context.Context, value string) error {
	sel := "option[value=" + strconv.Quote(value) + "]"
	err := e.el.Context(ctx).Select([]string{sel}, true, rod.SelectorTypeCSSSector)
	if isRodNotFound(err) {
		return notFoundError("select", entities.ByCSS(sel))
	}
	return classify("select "+value, err, nil, entities.FailureUnknown)
}

func (e *rodElement) Find(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	q, xpath, err := rodQuery(loc)
	if err != nil {
		return nil, err
	}
	el := e.el.Context(ctx)
	var (
		has   bool
		found *rod.Element
	)
	if xpath {
		has, found, err = el.HasX(q)
	} else {
		has, found, err = el.Has(q)
	}
	if err != nil {
		return nil, classify("find "+loc.String(), err, nil, entities.FailureUnknown)
	}
	if !has {
		return nil, notFoundError("find", loc)
	}
	return &rodElement{el: found}, nil
}

func (e *rodElement) FindAll(ctx context.Context, loc entities.Locator) ([]interfaces.Element, error) {
	q, xpath, err := rodQuery(loc)
	if err != nil {
		return nil, err
	}
	el := e.el.Context(ctx)
	var els rod.Elements
	if xpath {
		els, err = el.ElementsX(q)
	} else {
		els, err = el.Elements(q)
	}
	if err != nil {
		return nil, classify("find all "+loc.String(), err, nil, entities.FailureUnknown)
	}
	return wrapRodElements(els), nil
}

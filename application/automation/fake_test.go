package automation

import (
	"context"
	"fmt"
	"sync"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"
)

// fakeDriver serves a scripted feedback portal without a real browser.
type fakeDriver struct {
	session *fakeSession
	openErr error
	opened  int
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Open(ctx context.Context) (interfaces.BrowserSession, error) {
	d.opened++
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.session, nil
}

type fakeRow struct {
	text   string
	values []string
	panics bool
}

type fakeSession struct {
	mu sync.Mutex

	options []string
	rows    []*fakeRow
	failOn  map[string]error

	navigated    []string
	typed        map[string]string
	clicks       []string
	scriptClicks []string
	selected     string
	frame        string
	closed       int
}

func newFakeSession(options []string, rows int) *fakeSession {
	s := &fakeSession{
		options: options,
		failOn:  map[string]error{},
		typed:   map[string]string{},
	}
	for i := 0; i < rows; i++ {
		s.rows = append(s.rows, &fakeRow{
			text:   fmt.Sprintf("Question text %d\n1 2 3 4 5", i+1),
			values: []string{"1", "2", "3", "4", "5"},
		})
	}
	return s
}

func (s *fakeSession) check(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failOn[op]
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if err := s.check("navigate"); err != nil {
		return err
	}
	s.navigated = append(s.navigated, url)
	return nil
}

func (s *fakeSession) WaitPresent(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	if err := s.check("wait:" + loc.String()); err != nil {
		return nil, err
	}
	return &fakeElement{s: s, key: loc.String()}, nil
}

func (s *fakeSession) WaitClickable(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	if err := s.check("clickable:" + loc.String()); err != nil {
		return nil, err
	}
	return &fakeElement{s: s, key: loc.String()}, nil
}

func (s *fakeSession) SwitchToFrame(ctx context.Context, name string) error {
	if err := s.check("frame:" + name); err != nil {
		return err
	}
	s.frame = name
	return nil
}

func (s *fakeSession) Find(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	if err := s.check("find:" + loc.String()); err != nil {
		return nil, err
	}
	return &fakeElement{s: s, key: loc.String()}, nil
}

func (s *fakeSession) FindAll(ctx context.Context, loc entities.Locator) ([]interfaces.Element, error) {
	if err := s.check("findall:" + loc.String()); err != nil {
		return nil, err
	}
	rows := make([]interfaces.Element, 0, len(s.rows))
	for i, r := range s.rows {
		rows = append(rows, &fakeElement{s: s, key: fmt.Sprintf("row%d", i+1), row: r})
	}
	return rows, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeElement struct {
	s     *fakeSession
	key   string
	value string
	row   *fakeRow
}

func (e *fakeElement) Type(ctx context.Context, text string) error {
	if err := e.s.check("type:" + e.key); err != nil {
		return err
	}
	e.s.typed[e.key] = text
	return nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	if err := e.s.check("click:" + e.key); err != nil {
		return err
	}
	e.s.clicks = append(e.s.clicks, e.key)
	return nil
}

func (e *fakeElement) ScriptClick(ctx context.Context) error {
	if err := e.s.check("scriptclick:" + e.key); err != nil {
		return err
	}
	e.s.scriptClicks = append(e.s.scriptClicks, e.key)
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	if e.row != nil {
		return e.row.text, nil
	}
	return "", nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	if name == "value" {
		return e.value, nil
	}
	return "", nil
}

func (e *fakeElement) SelectValue(ctx context.Context, value string) error {
	if err := e.s.check("select:" + e.key); err != nil {
		return err
	}
	e.s.selected = value
	return nil
}

func (e *fakeElement) Find(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	if e.row == nil {
		return nil, entities.NewAutomationError(entities.FailureElementNotFound, "find", entities.ErrElementNotFound)
	}
	if e.row.panics {
		panic("row handle detached")
	}
	for _, v := range e.row.values {
		if loc == entities.RadioWithValue(v) {
			return &fakeElement{s: e.s, key: e.key + "/radio" + v}, nil
		}
	}
	return nil, entities.NewAutomationError(entities.FailureElementNotFound, "find "+loc.String(), entities.ErrElementNotFound)
}

func (e *fakeElement) FindAll(ctx context.Context, loc entities.Locator) ([]interfaces.Element, error) {
	if loc != entities.ByCSS("option") {
		return nil, nil
	}
	opts := make([]interfaces.Element, 0, len(e.s.options))
	for _, v := range e.s.options {
		opts = append(opts, &fakeElement{s: e.s, key: "option", value: v})
	}
	return opts, nil
}

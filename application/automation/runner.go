package automation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Outcome labels how a run ended. Used for logs and metrics.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeNoSession       Outcome = "no_session"
	OutcomeTermUnavailable Outcome = "term_unavailable"
	OutcomeTimeout         Outcome = "timeout"
	OutcomeNotFound        Outcome = "element_not_found"
	OutcomeNavigation      Outcome = "navigation"
	OutcomeError           Outcome = "error"
	OutcomeCritical        Outcome = "critical"
	OutcomeCanceled        Outcome = "canceled"
)

// sentinel term value the portal uses for its "select a term" placeholder
const placeholderTerm = "0"

type Runner struct {
	driver   interfaces.BrowserDriver
	cfg      entities.AutomationConfig
	logger   *logrus.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	onDone   func(Outcome, time.Duration)
	newRunID func() string
}

// NewRunner - creates runner bound to a browser driver and automation config
func NewRunner(driver interfaces.BrowserDriver, cfg entities.AutomationConfig, logger *logrus.Logger) *Runner {
	return &Runner{
		driver:   driver,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepContext,
		newRunID: uuid.NewString,
	}
}

// OnDone registers a callback invoked once per run with its outcome and duration.
func (r *Runner) OnDone(fn func(Outcome, time.Duration)) {
	r.onDone = fn
}

// Run - starts one automation attempt and streams its messages.
// The channel is closed after the last message, whatever the outcome.
func (r *Runner) Run(ctx context.Context, creds entities.Credentials) <-chan entities.Message {
	out := make(chan entities.Message)
	go r.run(ctx, creds, out)
	return out
}

type run struct {
	ctx    context.Context
	out    chan<- entities.Message
	log    *logrus.Entry
	cfg    entities.AutomationConfig
	sleep  func(ctx context.Context, d time.Duration) error
	closed bool
}

// emit delivers msg unless the consumer has gone away.
func (x *run) emit(msg entities.Message) bool {
	if x.closed || x.ctx.Err() != nil {
		x.closed = true
		return false
	}
	select {
	case x.out <- msg:
		return true
	case <-x.ctx.Done():
		x.closed = true
		return false
	}
}

func (r *Runner) run(ctx context.Context, creds entities.Credentials, out chan<- entities.Message) {
	started := time.Now()
	x := &run{
		ctx: ctx,
		out: out,
		log: r.logger.WithFields(logrus.Fields{
			"run_id": r.newRunID(),
			"driver": r.driver.Name(),
			"user":   creds.Username,
		}),
		cfg:   r.cfg,
		sleep: r.sleep,
	}

	outcome := OutcomeCritical
	defer func() {
		if rec := recover(); rec != nil {
			x.log.WithField("stack", string(debug.Stack())).Errorf("automation panicked: %v", rec)
			x.emit(criticalMessage(fmt.Errorf("panic: %v", rec)))
			outcome = OutcomeCritical
		}
		if x.closed && outcome != OutcomeSuccess {
			outcome = OutcomeCanceled
		}
		elapsed := time.Since(started)
		x.log.WithFields(logrus.Fields{"outcome": outcome, "elapsed": elapsed.Round(time.Millisecond)}).Info("automation finished")
		if r.onDone != nil {
			r.onDone(outcome, elapsed)
		}
		close(out)
	}()

	x.log.Info("automation started")
	session, err := r.driver.Open(ctx)
	if err != nil {
		x.log.WithError(err).Error("failed to open browser session")
		x.emit(criticalMessage(err))
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			x.log.WithError(err).Warn("failed to close browser session")
		}
	}()

	outcome = x.execute(session, creds)
}

// CriticalText renders a fault that escaped the workflow.
func CriticalText(err error) string {
	return fmt.Sprintf("\n--- A critical error occurred in the backend ---\nError details: %v", err)
}

func criticalMessage(err error) entities.Message {
	return entities.Message{Kind: entities.MessageCritical, Text: CriticalText(err)}
}

func (x *run) execute(s interfaces.BrowserSession, creds entities.Credentials) Outcome {
	sel := x.cfg.Selectors

	if !x.emit(entities.Progress("Initializing automation...")) {
		return OutcomeCanceled
	}

	// login
	x.emit(entities.Progress("Navigating to login page..."))
	if err := s.Navigate(x.ctx, x.cfg.LoginURL); err != nil {
		return x.fail("navigate to login page", err)
	}
	user, err := s.WaitPresent(x.ctx, entities.ByID(sel.UsernameFieldID))
	if err != nil {
		return x.fail("wait for username field", err)
	}
	if err := user.Type(x.ctx, creds.Username); err != nil {
		return x.fail("enter username", err)
	}
	pass, err := s.Find(x.ctx, entities.ByID(sel.PasswordFieldID))
	if err != nil {
		return x.fail("find password field", err)
	}
	if err := pass.Type(x.ctx, creds.Password); err != nil {
		return x.fail("enter password", err)
	}
	btn, err := s.Find(x.ctx, entities.ByID(sel.LoginButtonID))
	if err != nil {
		return x.fail("find login button", err)
	}
	if err := btn.Click(x.ctx); err != nil {
		return x.fail("click login button", err)
	}
	if !x.emit(entities.Progress("Login submitted. Waiting for dashboard...")) {
		return OutcomeCanceled
	}

	// dashboard -> feedback iframe
	link, err := s.WaitClickable(x.ctx, entities.ByLinkText(sel.FeedbackLinkText))
	if err != nil {
		return x.fail("wait for feedback link", err)
	}
	x.emit(entities.Progress(fmt.Sprintf("On dashboard. Clicking '%s' link...", sel.FeedbackLinkText)))
	if err := link.Click(x.ctx); err != nil {
		return x.fail("click feedback link", err)
	}
	x.emit(entities.Progress("Switching to the feedback iframe..."))
	if err := s.SwitchToFrame(x.ctx, sel.IframeName); err != nil {
		return x.fail("switch to feedback iframe", err)
	}

	// term selection
	if !x.emit(entities.Progress("Checking for active feedback sessions...")) {
		return OutcomeCanceled
	}
	dropdown, err := s.WaitPresent(x.ctx, entities.ByID(sel.TermDropdownID))
	if err != nil {
		return x.fail("wait for term dropdown", err)
	}
	terms, err := activeTerms(x.ctx, dropdown)
	if err != nil {
		return x.fail("read term options", err)
	}
	if len(terms) == 0 {
		x.emit(entities.Status("🟡 No active feedback sessions found. Exiting."))
		return OutcomeNoSession
	}
	x.emit(entities.Success("✅ Active session(s) found. Available terms: " + formatTerms(terms)))

	if !slices.Contains(terms, x.cfg.TermValue) {
		x.emit(entities.Failure(fmt.Sprintf("❌ Error: Your configured term '%s' is not available.", x.cfg.TermValue)))
		return OutcomeTermUnavailable
	}
	x.emit(entities.Progress(fmt.Sprintf("Selecting configured term: '%s'", x.cfg.TermValue)))
	if err := dropdown.SelectValue(x.ctx, x.cfg.TermValue); err != nil {
		return x.fail("select term", err)
	}

	// questions
	if !x.emit(entities.Progress("Waiting for questions to appear...")) {
		return OutcomeCanceled
	}
	rowsLoc := entities.ByXPath(sel.QuestionRowsXPath)
	if _, err := s.WaitPresent(x.ctx, rowsLoc); err != nil {
		return x.fail("wait for question rows", err)
	}
	rows, err := s.FindAll(x.ctx, rowsLoc)
	if err != nil {
		return x.fail("collect question rows", err)
	}
	x.emit(entities.Progress(fmt.Sprintf("Found %d questions. Filling feedback...", len(rows))))

	rating := strconv.Itoa(x.cfg.DefaultRating)
	for i, row := range rows {
		n := i + 1
		line, err := x.answer(row, n, rating)
		if err != nil {
			if !x.cfg.SkipRowErrors {
				return x.fail(fmt.Sprintf("answer question %d", n), err)
			}
			x.log.WithError(err).WithField("question", n).Warn("skipping question")
			line = entities.Warning(fmt.Sprintf("  ⚠️ Question %d: skipped (%v)", n, err))
		}
		if !x.emit(line) {
			return OutcomeCanceled
		}
		if err := x.sleep(x.ctx, x.cfg.RowDelay); err != nil {
			return OutcomeCanceled
		}
	}

	x.emit(entities.Progress("\nAll questions have been filled."))
	if x.cfg.SubmitForm {
		x.emit(entities.Progress("Attempting to submit form..."))
		submit, err := s.Find(x.ctx, entities.ByID(sel.SubmitButtonID))
		if err != nil {
			return x.fail("find submit button", err)
		}
		if err := submit.Click(x.ctx); err != nil {
			return x.fail("click submit button", err)
		}
		x.emit(entities.Success("✅ FORM SUBMITTED SUCCESSFULLY!"))
	} else {
		x.emit(entities.Success("👍 Feedback filled. Submission is disabled in config."))
	}

	if !x.emit(entities.Success("Automation finished successfully.")) {
		return OutcomeCanceled
	}
	_ = x.sleep(x.ctx, x.cfg.FinalPause)
	return OutcomeSuccess
}

// answer clicks the configured rating in one question row.
func (x *run) answer(row interfaces.Element, n int, rating string) (entities.Message, error) {
	radio, err := row.Find(x.ctx, entities.RadioWithValue(rating))
	if err != nil {
		return entities.Message{}, err
	}
	if err := radio.ScriptClick(x.ctx); err != nil {
		return entities.Message{}, err
	}
	text := fmt.Sprintf("  - Question %d: Answered with rating '%s'", n, rating)
	if x.cfg.LogQuestionText {
		if q, err := row.Text(x.ctx); err == nil {
			if q = questionText(q); q != "" {
				text += " — " + q
			}
		}
	}
	return entities.Progress(text), nil
}

// fail turns a step error into the closing message of the run.
func (x *run) fail(step string, err error) Outcome {
	if errors.Is(err, context.Canceled) || (x.ctx.Err() != nil && !errors.Is(err, entities.ErrTimeout)) {
		x.log.WithError(err).WithField("step", step).Info("automation canceled")
		return OutcomeCanceled
	}
	entry := x.log.WithError(err).WithField("step", step)
	switch entities.ClassifyFailure(err) {
	case entities.FailureTimeout:
		entry.Warn("timed out")
		x.emit(entities.Message{
			Kind: entities.MessageTimeout,
			Text: fmt.Sprintf("\n❌ A timeout occurred. The page took too long to load an element.\nError details: %v", err),
		})
		return OutcomeTimeout
	case entities.FailureElementNotFound:
		entry.Warn("element not found")
		x.emit(entities.Failure(fmt.Sprintf("\n❌ Could not find a required page element.\nError details: %v", err)))
		return OutcomeNotFound
	case entities.FailureNavigation:
		entry.Warn("navigation failed")
		x.emit(entities.Failure(fmt.Sprintf("\n❌ Navigation failed.\nError details: %v", err)))
		return OutcomeNavigation
	default:
		entry.Error("unexpected automation error")
		x.emit(entities.Failure(fmt.Sprintf("\n❌ An unexpected error occurred: %v", err)))
		return OutcomeError
	}
}

// activeTerms returns the dropdown option values that name a real term.
func activeTerms(ctx context.Context, dropdown interfaces.Element) ([]string, error) {
	options, err := dropdown.FindAll(ctx, entities.ByCSS("option"))
	if err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(options))
	for _, opt := range options {
		value, err := opt.Attribute(ctx, "value")
		if err != nil {
			return nil, err
		}
		if value == "" || value == placeholderTerm {
			continue
		}
		terms = append(terms, value)
	}
	return terms, nil
}

// formatTerms renders values as ['1', '2'].
func formatTerms(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = "'" + t + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// questionText picks the first non-empty line of a row's text.
func questionText(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

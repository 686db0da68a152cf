package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Selectors holds the element identifiers used by the feedback workflow.
type Selectors struct {
	UsernameFieldID   string `yaml:"username_field_id" json:"username_field_id"`
	PasswordFieldID   string `yaml:"password_field_id" json:"password_field_id"`
	LoginButtonID     string `yaml:"login_button_id" json:"login_button_id"`
	FeedbackLinkText  string `yaml:"feedback_link_text" json:"feedback_link_text"`
	IframeName        string `yaml:"iframe_name" json:"iframe_name"`
	TermDropdownID    string `yaml:"term_dropdown_id" json:"term_dropdown_id"`
	QuestionRowsXPath string `yaml:"question_rows_xpath" json:"question_rows_xpath"`
	SubmitButtonID    string `yaml:"submit_button_id" json:"submit_button_id"`
}

// AutomationConfig is the configuration record of a feedback run.
// It is built once at startup and never mutated afterwards.
type AutomationConfig struct {
	LoginURL      string    `yaml:"login_url" json:"login_url"`
	Selectors     Selectors `yaml:"selectors" json:"selectors"`
	TermValue     string    `yaml:"term_value" json:"term_value"`
	SubmitForm    bool      `yaml:"submit_form" json:"submit_form"`
	DefaultRating int       `yaml:"default_rating" json:"default_rating"`

	WaitTimeout     time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	RowDelay        time.Duration `yaml:"row_delay" json:"row_delay"`
	FinalPause      time.Duration `yaml:"final_pause" json:"final_pause"`
	SkipRowErrors   bool          `yaml:"skip_row_errors" json:"skip_row_errors"`
	LogQuestionText bool          `yaml:"log_question_text" json:"log_question_text"`
}

// DefaultAutomationConfig returns the portal settings the service ships with.
func DefaultAutomationConfig() AutomationConfig {
	return AutomationConfig{
		LoginURL: "http://webprosindia.com/Gokaraju/",
		Selectors: Selectors{
			UsernameFieldID:   "txtId2",
			PasswordFieldID:   "txtPwd2",
			LoginButtonID:     "imgBtn2",
			FeedbackLinkText:  "FEEDBACK",
			IframeName:        "capIframe",
			TermDropdownID:    "ctl00_CapPlaceHolder_ddlExams",
			QuestionRowsXPath: "//table[contains(@id, 'gvStudentFeedback')]//tr[.//input[@type='radio']]",
			SubmitButtonID:    "ContentPlaceHolder1_btnSubmit",
		},
		TermValue:     "1",
		SubmitForm:    false,
		DefaultRating: 4,
		WaitTimeout:   25 * time.Second,
		RowDelay:      50 * time.Millisecond,
		FinalPause:    2 * time.Second,
	}
}

// Validate checks that every field the workflow depends on is usable.
func (c AutomationConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.LoginURL) == "" {
		errs = append(errs, errors.New("login url is required"))
	}
	required := []struct{ name, value string }{
		{"username_field_id", c.Selectors.UsernameFieldID},
		{"password_field_id", c.Selectors.PasswordFieldID},
		{"login_button_id", c.Selectors.LoginButtonID},
		{"feedback_link_text", c.Selectors.FeedbackLinkText},
		{"iframe_name", c.Selectors.IframeName},
		{"term_dropdown_id", c.Selectors.TermDropdownID},
		{"question_rows_xpath", c.Selectors.QuestionRowsXPath},
		{"submit_button_id", c.Selectors.SubmitButtonID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("selector %s is required", r.name))
		}
	}
	if strings.TrimSpace(c.TermValue) == "" {
		errs = append(errs, errors.New("term value is required"))
	}
	if c.DefaultRating <= 0 {
		errs = append(errs, fmt.Errorf("default rating must be positive, got %d", c.DefaultRating))
	}
	if c.WaitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("wait timeout must be positive, got %s", c.WaitTimeout))
	}
	if c.RowDelay < 0 || c.FinalPause < 0 {
		errs = append(errs, errors.New("row delay and final pause must not be negative"))
	}
	return errors.Join(errs...)
}

// Browser driver names accepted in BrowserOptions.Driver.
const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
	DriverSelenium   = "selenium"
)

// BrowserOptions controls how a browser session is launched.
type BrowserOptions struct {
	Driver       string        `yaml:"driver" json:"driver"`
	Headless     bool          `yaml:"headless" json:"headless"`
	WindowWidth  int           `yaml:"window_width" json:"window_width"`
	WindowHeight int           `yaml:"window_height" json:"window_height"`
	DisableGPU   bool          `yaml:"disable_gpu" json:"disable_gpu"`
	NoSandbox    bool          `yaml:"no_sandbox" json:"no_sandbox"`
	UserDataDir  string        `yaml:"user_data_dir" json:"user_data_dir"`
	DriverPath   string        `yaml:"driver_path" json:"driver_path"`
	BinaryPath   string        `yaml:"binary_path" json:"binary_path"`
	ExtraArgs    []string      `yaml:"extra_args" json:"extra_args"`
	WaitTimeout  time.Duration `yaml:"-" json:"-"`
}

// DefaultBrowserOptions returns container-friendly launch options.
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		Driver:       DriverPlaywright,
		Headless:     true,
		WindowWidth:  1920,
		WindowHeight: 1080,
		DisableGPU:   true,
		NoSandbox:    true,
		WaitTimeout:  25 * time.Second,
	}
}

// Validate checks the driver name and window geometry.
func (o BrowserOptions) Validate() error {
	switch o.Driver {
	case DriverPlaywright, DriverRod, DriverSelenium:
	default:
		return fmt.Errorf("unknown browser driver %q (want %s, %s or %s)", o.Driver, DriverPlaywright, DriverRod, DriverSelenium)
	}
	if o.WindowWidth <= 0 || o.WindowHeight <= 0 {
		return fmt.Errorf("invalid window size %dx%d", o.WindowWidth, o.WindowHeight)
	}
	return nil
}

// ChromeArgs returns the Chrome command-line switches implied by the options,
// without leading dashes. UserDataDir is left to each driver.
func (o BrowserOptions) ChromeArgs() []string {
	args := []string{
		"disable-dev-shm-usage",
		fmt.Sprintf("window-size=%d,%d", o.WindowWidth, o.WindowHeight),
	}
	if o.NoSandbox {
		args = append(args, "no-sandbox")
	}
	if o.DisableGPU {
		args = append(args, "disable-gpu")
	}
	for _, a := range o.ExtraArgs {
		a = strings.TrimLeft(strings.TrimSpace(a), "-")
		if a != "" {
			args = append(args, a)
		}
	}
	return args
}

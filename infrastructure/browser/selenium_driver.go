package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// SeleniumDriver drives Chrome through a chromedriver process started per session.
type SeleniumDriver struct {
	opts         entities.BrowserOptions
	logger       *logrus.Logger
	driverPath   string
	chromeBinary string
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chromedriver not found. Please install it or set BROWSER_DRIVER_PATH environment variable")
}

// findChromeBinary - finds Chrome/Chromium browser executable path
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	chromePaths := []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	}

	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	return ""
}

// freePort - asks the kernel for an unused local TCP port
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// NewSeleniumDriver - locates chromedriver and Chrome for later sessions
func NewSeleniumDriver(opts entities.BrowserOptions, logger *logrus.Logger) (*SeleniumDriver, error) {
	driverPath, err := findChromeDriver(opts.DriverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}
	logger.Infof("Using ChromeDriver at: %s", driverPath)

	chromeBinary := findChromeBinary(opts.BinaryPath)
	if chromeBinary != "" {
		logger.Infof("Using Chrome binary at: %s", chromeBinary)
	}

	return &SeleniumDriver{
		opts:         opts,
		logger:       logger,
		driverPath:   driverPath,
		chromeBinary: chromeBinary,
	}, nil
}

func (d *SeleniumDriver) Name() string { return entities.DriverSelenium }

// Open - starts chromedriver on a free port and opens a WebDriver session
func (d *SeleniumDriver) Open(ctx context.Context) (interfaces.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to pick chromedriver port: %w", err)
	}

	service, err := selenium.NewChromeDriverService(d.driverPath, port)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	caps := selenium.Capabilities{
		"browserName": "chrome",
	}

	args := make([]string, 0, 8)
	if d.opts.Headless {
		args = append(args, "--headless=new")
	}
	for _, a := range d.opts.ChromeArgs() {
		args = append(args, "--"+a)
	}
	if d.opts.UserDataDir != "" {
		args = append(args, fmt.Sprintf("--user-data-dir=%s", d.opts.UserDataDir))
	}

	chromeCaps := chrome.Capabilities{Args: args}
	if d.chromeBinary != "" {
		chromeCaps.Path = d.chromeBinary
	}
	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://127.0.0.1:%d", port))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome browser not found. Please install Google Chrome or set CHROME_BINARY_PATH environment variable. Error: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	return &seleniumSession{
		wd:      wd,
		service: service,
		timeout: d.opts.WaitTimeout,
	}, nil
}

type seleniumSession struct {
	wd      selenium.WebDriver
	service *selenium.Service
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (s *seleniumSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify("navigate", s.wd.Get(url), nil, entities.FailureNavigation)
}

// waitFor - polls cond until it holds, the wait timeout elapses or ctx ends
func (s *seleniumSession) waitFor(ctx context.Context, op string, loc entities.Locator, cond func(selenium.WebDriver) (bool, error)) error {
	err := s.wd.WaitWithTimeoutAndInterval(func(wd selenium.WebDriver) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return cond(wd)
	}, s.timeout, pollInterval)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if strings.Contains(err.Error(), "timeout") {
		return timeoutError(op, loc)
	}
	return classify(op, err, nil, entities.FailureUnknown)
}

func (s *seleniumSession) WaitPresent(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	by, value, err := seleniumBy(loc)
	if err != nil {
		return nil, err
	}
	var found selenium.WebElement
	err = s.waitFor(ctx, "wait "+loc.String(), loc, func(wd selenium.WebDriver) (bool, error) {
		we, err := wd.FindElement(by, value)
		if err != nil {
			return false, nil
		}
		found = we
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &seleniumElement{wd: s.wd, we: found}, nil
}

func (s *seleniumSession) WaitClickable(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	by, value, err := seleniumBy(loc)
	if err != nil {
		return nil, err
	}
	var found selenium.WebElement
	err = s.waitFor(ctx, "wait "+loc.String(), loc, func(wd selenium.WebDriver) (bool, error) {
		we, err := wd.FindElement(by, value)
		if err != nil {
			return false, nil
		}
		if shown, err := we.IsDisplayed(); err != nil || !shown {
			return false, nil
		}
		if enabled, err := we.IsEnabled(); err != nil || !enabled {
			return false, nil
		}
		found = we
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &seleniumElement{wd: s.wd, we: found}, nil
}

func (s *seleniumSession) SwitchToFrame(ctx context.Context, name string) error {
	loc := entities.ByName(name)
	return s.waitFor(ctx, "switch to frame "+name, loc, func(wd selenium.WebDriver) (bool, error) {
		frame, err := wd.FindElement(selenium.ByName, name)
		if err != nil {
			return false, nil
		}
		if err := wd.SwitchFrame(frame); err != nil {
			return false, nil
		}
		return true, nil
	})
}

func (s *seleniumSession) Find(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := seleniumBy(loc)
	if err != nil {
		return nil, err
	}
	we, err := s.wd.FindElement(by, value)
	if err != nil {
		return nil, seleniumFindError(loc, err)
	}
	return &seleniumElement{wd: s.wd, we: we}, nil
}

func (s *seleniumSession) FindAll(ctx context.Context, loc entities.Locator) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := seleniumBy(loc)
	if err != nil {
		return nil, err
	}
	wes, err := s.wd.FindElements(by, value)
	if err != nil {
		return nil, classify("find all "+loc.String(), err, nil, entities.FailureUnknown)
	}
	return wrapSeleniumElements(s.wd, wes), nil
}

// Close - closes browser and stops ChromeDriver service
func (s *seleniumSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.wd.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("quit webdriver: %w", err))
		}
		if err := s.service.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop chromedriver: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// seleniumFindError - maps WebDriver's "no such element" onto the taxonomy
func seleniumFindError(loc entities.Locator, err error) error {
	if strings.Contains(err.Error(), "no such element") {
		return entities.NewAutomationError(entities.FailureElementNotFound, "find "+loc.String(), err)
	}
	return classify("find "+loc.String(), err, nil, entities.FailureUnknown)
}

func wrapSeleniumElements(wd selenium.WebDriver, wes []selenium.WebElement) []interfaces.Element {
	out := make([]interfaces.Element, 0, len(wes))
	for _, we := range wes {
		out = append(out, &seleniumElement{wd: wd, we: we})
	}
	return out
}

type seleniumElement struct {
	wd selenium.WebDriver
	we selenium.WebElement
}

func (e *seleniumElement) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify("type", e.we.SendKeys(text), nil, entities.FailureUnknown)
}

func (e *seleniumElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify("click", e.we.Click(), nil, entities.FailureUnknown)
}

// ScriptClick - fires click() inside the page instead of a pointer event
func (e *seleniumElement) ScriptClick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.wd.ExecuteScript("arguments[0].click();", []interface{}{e.we})
	return classify("script click", err, nil, entities.FailureUnknown)
}

func (e *seleniumElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.we.Text()
	return text, classify("text", err, nil, entities.FailureUnknown)
}

func (e *seleniumElement) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.we.GetAttribute(name)
	if err != nil {
		// tebeka/selenium reports a null attribute as an error
		if strings.Contains(err.Error(), "nil return value") {
			return "", nil
		}
		return "", classify("attribute "+name, err, nil, entities.FailureUnknown)
	}
	return v, nil
}

func (e *seleniumElement) SelectValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := entities.ByXPath(fmt.Sprintf(".//option[@value=%s]", xpathLiteral(value)))
	opt, err := e.we.FindElement(selenium.ByXPATH, loc.Value)
	if err != nil {
		return seleniumFindError(loc, err)
	}
	return classify("select "+value, opt.Click(), nil, entities.FailureUnknown)
}

func (e *seleniumElement) Find(ctx context.Context, loc entities.Locator) (interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := seleniumBy(loc)
	if err != nil {
		return nil, err
	}
	we, err := e.we.FindElement(by, value)
	if err != nil {
		return nil, seleniumFindError(loc, err)
	}
	return &seleniumElement{wd: e.wd, we: we}, nil
}

func (e *seleniumElement) FindAll(ctx context.Context, loc entities.Locator) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := seleniumBy(loc)
	if err != nil {
		return nil, err
	}
	wes, err := e.we.FindElements(by, value)
	if err != nil {
		return nil, classify("find all "+loc.String(), err, nil, entities.FailureUnknown)
	}
	return wrapSeleniumElements(e.wd, wes), nil
}

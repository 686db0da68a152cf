package browser

import (
	"fmt"
	"strconv"
	"strings"

	"feedback_automation/domain/entities"

	"github.com/tebeka/selenium"
)

// playwrightSelector - translates a locator into a playwright selector string
func playwrightSelector(loc entities.Locator) (string, error) {
	switch loc.By {
	case entities.LocateByID:
		return "id=" + loc.Value, nil
	case entities.LocateByName:
		return fmt.Sprintf("[name=%s]", strconv.Quote(loc.Value)), nil
	case entities.LocateByLinkText:
		return fmt.Sprintf("a:text-is(%s)", strconv.Quote(loc.Value)), nil
	case entities.LocateByXPath:
		return "xpath=" + loc.Value, nil
	case entities.LocateByCSS:
		return loc.Value, nil
	}
	return "", unsupportedLocator(loc)
}

// rodQuery - translates a locator for rod, which only knows CSS and XPath
func rodQuery(loc entities.Locator) (query string, xpath bool, err error) {
	switch loc.By {
	case entities.LocateByID:
		return fmt.Sprintf("[id=%s]", strconv.Quote(loc.Value)), false, nil
	case entities.LocateByName:
		return fmt.Sprintf("[name=%s]", strconv.Quote(loc.Value)), false, nil
	case entities.LocateByLinkText:
		return fmt.Sprintf("//a[normalize-space(.)=%s]", xpathLiteral(loc.Value)), true, nil
	case entities.LocateByXPath:
		return loc.Value, true, nil
	case entities.LocateByCSS:
		return loc.Value, false, nil
	}
	return "", false, unsupportedLocator(loc)
}

// seleniumBy - translates a locator into a WebDriver strategy
func seleniumBy(loc entities.Locator) (string, string, error) {
	switch loc.By {
	case entities.LocateByID:
		return selenium.ByID, loc.Value, nil
	case entities.LocateByName:
		return selenium.ByName, loc.Value, nil
	case entities.LocateByLinkText:
		return selenium.ByLinkText, loc.Value, nil
	case entities.LocateByXPath:
		return selenium.ByXPATH, loc.Value, nil
	case entities.LocateByCSS:
		return selenium.ByCSSSelector, loc.Value, nil
	}
	return "", "", unsupportedLocator(loc)
}

// xpathLiteral quotes s for use inside an XPath expression. XPath 1.0 has no
// escapes, so strings holding both quote kinds go through concat().
func xpathLiteral(s string) string {
	if !strings.ContainsRune(s, '\'') {
		return "'" + s + "'"
	}
	if !strings.ContainsRune(s, '"') {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func unsupportedLocator(loc entities.Locator) error {
	return entities.NewAutomationError(entities.FailureUnknown, "locate", fmt.Errorf("unsupported locator strategy %q", loc.By))
}

package entities

import "fmt"

// LocatorStrategy names how a Locator value is interpreted.
type LocatorStrategy string

const (
	LocateByID       LocatorStrategy = "id"
	LocateByName     LocatorStrategy = "name"
	LocateByLinkText LocatorStrategy = "link_text"
	LocateByXPath    LocatorStrategy = "xpath"
	LocateByCSS      LocatorStrategy = "css"
)

// Locator identifies an element independently of the browser driver.
type Locator struct {
	By    LocatorStrategy `json:"by"`
	Value string          `json:"value"`
}

func ByID(id string) Locator         { return Locator{By: LocateByID, Value: id} }
func ByName(name string) Locator     { return Locator{By: LocateByName, Value: name} }
func ByLinkText(text string) Locator { return Locator{By: LocateByLinkText, Value: text} }
func ByXPath(xpath string) Locator   { return Locator{By: LocateByXPath, Value: xpath} }
func ByCSS(selector string) Locator  { return Locator{By: LocateByCSS, Value: selector} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// RadioWithValue locates a radio input with the given value below the current element.
func RadioWithValue(value string) Locator {
	return ByXPath(fmt.Sprintf(".//input[@type='radio' and @value='%s']", value))
}

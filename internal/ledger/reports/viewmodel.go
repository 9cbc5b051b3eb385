package reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders monetary amounts for statement payloads.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a Formatter for the given BCP 47 tag, falling back to
// English when the tag is unknown.
func NewFormatter(tag string) *Formatter {
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.English
	}
	return &Formatter{printer: message.NewPrinter(lang)}
}

// Amount renders a monetary value with grouping separators and two decimals.
func (f *Formatter) Amount(v float64) string {
	return f.printer.Sprintf("%.2f", v)
}

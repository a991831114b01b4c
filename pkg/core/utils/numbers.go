package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Grouper renders numbers with the thousands separator of a locale:
// "tr" gives 10.200.200, "en" gives 10,200,200.
type Grouper struct {
	p *message.Printer
}

// NewGrouper builds a Grouper; unknown locales fall back to English.
func NewGrouper(locale string) Grouper {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Grouper{p: message.NewPrinter(tag)}
}

// Int groups an integer.
func (g Grouper) Int(n int) string {
	return g.p.Sprintf("%d", n)
}

// Round groups a float rounded to the nearest integer.
func (g Grouper) Round(v float64) string {
	return g.p.Sprintf("%.0f", v)
}

// Fixed formats v with prec decimals in the locale's notation.
func (g Grouper) Fixed(v float64, prec int) string {
	return g.p.Sprintf("%.*f", prec, v)
}

package export

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders v with exactly two decimals and no grouping, the
// machine-readable form used in exports.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

const dayLabelLayout = "Jan 2"

// Formatter renders amounts and day labels for display in a given locale.
type Formatter struct {
	printer *message.Printer
	// calendar is empty for English.
	calendar monday.Locale
}

// NewFormatter parses a BCP 47 tag such as "en-US" or "id-ID". Unknown or
// empty tags fall back to English.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return Formatter{printer: message.NewPrinter(tag), calendar: calendarLocale(tag)}
}

// DayLabel renders t as a short month/day label, e.g. "May 2" for en and
// "Mai 2" for de.
func (f Formatter) DayLabel(t time.Time) string {
	if f.calendar == "" {
		return t.Format(dayLabelLayout)
	}
	return monday.Format(t, dayLabelLayout, f.calendar)
}

// calendarLocale maps a tag onto a supported monday locale, preferring an
// exact language_REGION match and otherwise the first locale of the language.
func calendarLocale(tag language.Tag) monday.Locale {
	base, _ := tag.Base()
	if base.String() == "en" {
		return ""
	}
	region, _ := tag.Region()
	want := base.String() + "_" + region.String()
	var sameLanguage monday.Locale
	for _, l := range monday.ListLocales() {
		name := string(l)
		if name == want {
			return l
		}
		if sameLanguage == "" && strings.HasPrefix(name, base.String()+"_") {
			sameLanguage = l
		}
	}
	return sameLanguage
}

// Amount returns v rounded to two decimals with locale grouping, e.g.
// "1,234.50" for en and "1.234,50" for id.
func (f Formatter) Amount(v float64) string {
	if f.printer == nil {
		return FormatAmount(v)
	}
	return f.printer.Sprintf("%.2f", round2(v))
}

// Count formats an integer with locale grouping.
func (f Formatter) Count(n int) string {
	if f.printer == nil {
		return decimal.NewFromInt(int64(n)).String()
	}
	return f.printer.Sprintf("%d", n)
}

func round2(v float64) float64 {
	out, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return out
}

package model

import (
	"math"
	"strconv"
	"strings"
)

// OnRequest is the display text used when no numeric price is known.
const OnRequest = "По запросу"

const currencySuffix = " ₽"

// Price is either a numeric amount or opaque display text.
type Price struct {
	Amount  float64
	Numeric bool
	Text    string
}

// NumericPrice builds a numeric price.
func NumericPrice(v float64) Price { return Price{Amount: v, Numeric: true} }

// TextPrice builds a price carrying display text only.
func TextPrice(s string) Price {
	s = strings.TrimSpace(s)
	if s == "" {
		s = OnRequest
	}
	return Price{Text: s}
}

// PriceOnRequest is the sentinel for records without a price.
func PriceOnRequest() Price { return Price{Text: OnRequest} }

// String renders numeric prices as "1 234.50 ₽" ("1 500 ₽" when the
// fraction is zero) and passes display text through unchanged.
func (p Price) String() string {
	if !p.Numeric {
		if p.Text == "" {
			return OnRequest
		}
		return p.Text
	}
	return FormatAmount(p.Amount) + currencySuffix
}

// FormatAmount renders v with space-separated thousands and two decimals,
// dropping a ".00" tail.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if frac != "00" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

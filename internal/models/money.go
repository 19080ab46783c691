package models

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySuffix is appended to every formatted amount.
const CurrencySuffix = "افغانی"

// Amount is a price in whole Afghani.
type Amount int64

var printer = message.NewPrinter(language.English)

// ParsePrice extracts the integer embedded in a free-form price. Every character other than
// an ASCII digit is dropped, so "12,500 units" is 12500. Anything unparseable yields 0.
func ParsePrice(v any) Amount {
	if v == nil {
		return 0
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case Amount:
		return t
	default:
		s = cast.ToString(v)
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return Amount(n)
}

// GroupDigits renders n with thousands separators.
func GroupDigits(n Amount) string {
	return printer.Sprintf("%d", int64(n))
}

// FormatPrice renders an amount, number or price string as "12,500 افغانی".
func FormatPrice(v any) string {
	var n Amount
	switch t := v.(type) {
	case Amount:
		n = t
	case string, nil:
		n = ParsePrice(t)
	default:
		n = Amount(cast.ToInt64(v))
	}
	return GroupDigits(n) + " " + CurrencySuffix
}

func (a Amount) String() string {
	return FormatPrice(a)
}

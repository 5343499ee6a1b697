package rules

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

const dateLayout = "2006-01-02"

// Numbers longer than maxDecimalInput or with an exponent beyond
// ±maxDecimalExponent are not numeric.
const (
	maxDecimalInput    = 1024
	maxDecimalExponent = 1000
)

// dateLayouts are the accepted ISO 8601 forms, tried in order. Input with a
// space between date and time is rewritten to use 'T' first.
var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006-01-02T15:04",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15",
}

// Value is a cell or filter operand parsed under a column rule. The zero
// Value is the no-value sentinel: it is not valid and equals nothing,
// itself included.
type Value struct {
	kind  types.ColumnType
	valid bool
	num   decimal.Decimal
	date  time.Time
	text  string
}

// Valid reports whether parsing succeeded.
func (v Value) Valid() bool { return v.valid }

// ParseCell parses stored cell text. Empty text is never valid.
func ParseCell(rule types.ColumnRule, text string) Value {
	if text == "" {
		return Value{}
	}
	return parse(rule.Type, text)
}

// ParseTarget parses a filter operand. Nil is never valid; for text
// columns any other value, the empty string included, is valid.
func ParseTarget(rule types.ColumnRule, raw any) Value {
	if raw == nil {
		return Value{}
	}
	return parse(rule.Type, Text(raw))
}

func parse(kind types.ColumnType, text string) Value {
	switch kind {
	case types.ColumnNumber:
		d, ok := parseDecimal(text)
		if !ok {
			return Value{}
		}
		return Value{kind: kind, valid: true, num: d}
	case types.ColumnDate:
		t, ok := parseDate(text)
		if !ok {
			return Value{}
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return Value{kind: kind, valid: true, date: day}
	default:
		return Value{kind: types.ColumnText, valid: true, text: text}
	}
}

// Compare orders two valid values of the same kind: -1, 0 or +1.
// Callers must check Valid first.
func (v Value) Compare(o Value) int {
	switch v.kind {
	case types.ColumnNumber:
		return v.num.Cmp(o.num)
	case types.ColumnDate:
		return v.date.Compare(o.date)
	default:
		return strings.Compare(v.text, o.text)
	}
}

// Equal reports whether both values are valid and compare equal.
func (v Value) Equal(o Value) bool {
	return v.valid && o.valid && v.kind == o.kind && v.Compare(o) == 0
}

func parseDecimal(text string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(text)
	if s == "" || len(s) > maxDecimalInput {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if d.IsZero() {
		return decimal.Zero, true
	}
	if exp := d.Exponent(); exp > maxDecimalExponent || exp < -maxDecimalExponent {
		return decimal.Decimal{}, false
	}
	return d, true
}

// formatDecimal renders d in fixed point without trailing fractional zeros.
// Zero, negative zero included, renders as "0".
func formatDecimal(d decimal.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	return d.String()
}

// parseDate accepts ISO 8601 dates and date-times. The result keeps the
// wall clock of any offset present, so the calendar date is preserved.
func parseDate(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

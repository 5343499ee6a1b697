package types

import (
	"fmt"
	"strings"
)

// ColumnType selects how a column's values are parsed, stored and compared.
type ColumnType string

// Column types.
const (
	ColumnText   ColumnType = "text"
	ColumnNumber ColumnType = "number"
	ColumnDate   ColumnType = "date"
)

// ColumnRule is the typing rule for one column.
type ColumnRule struct {
	Type       ColumnType `json:"type" yaml:"type"`
	AllowBlank bool       `json:"allow_blank" yaml:"allow_blank"`
}

// DefaultColumnRule applies to every column without an explicit rule.
var DefaultColumnRule = ColumnRule{Type: ColumnText, AllowBlank: true}

// ParseColumnType resolves a case-insensitive type name.
func ParseColumnType(s string) (ColumnType, error) {
	switch ColumnType(strings.ToLower(strings.TrimSpace(s))) {
	case ColumnText:
		return ColumnText, nil
	case ColumnNumber:
		return ColumnNumber, nil
	case ColumnDate:
		return ColumnDate, nil
	}
	return "", fmt.Errorf("%w: unknown column type %q", ErrInvalidArgument, s)
}

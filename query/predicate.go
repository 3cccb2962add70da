// Package query builds the selection used to list event instances.
//
// A Predicate can be rendered as a SQL selection string for providers backed
// by a database, or evaluated directly against rows by providers that are not.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cyp0633/libcalevents/record"
)

// Predicate is a boolean expression over row columns.
type Predicate interface {
	Match(row record.Row) bool
	String() string
}

// Op is a comparison operator.
type Op string

const (
	OpEq    Op = "="
	OpLt    Op = "<"
	OpLe    Op = "<="
	OpGt    Op = ">"
	OpGe    Op = ">="
	OpIsNot Op = "IS NOT"
)

// Compare compares a column to a constant. Value is an int64 or a string.
type Compare struct {
	Column string
	Op     Op
	Value  any
}

// Match follows SQL NULL semantics: a missing column fails every operator
// except IS NOT.
func (c Compare) Match(row record.Row) bool {
	if !row.Has(c.Column) {
		return c.Op == OpIsNot
	}

	var cmp int
	switch want := c.Value.(type) {
	case int64:
		got, ok := row.Int64(c.Column)
		if !ok {
			return c.Op == OpIsNot
		}
		cmp = compareInt(got, want)
	case int:
		got, ok := row.Int64(c.Column)
		if !ok {
			return c.Op == OpIsNot
		}
		cmp = compareInt(got, int64(want))
	default:
		got, _ := row.String(c.Column)
		cmp = strings.Compare(got, fmt.Sprint(want))
	}

	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpIsNot:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	}
	return false
}

func (c Compare) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Column, c.Op, literal(c.Value))
}

// In matches rows whose column equals one of Values.
type In struct {
	Column string
	Values []string
}

func (in In) Match(row record.Row) bool {
	got, ok := row.String(in.Column)
	if !ok {
		return false
	}
	for _, v := range in.Values {
		if v == got {
			return true
		}
	}
	return false
}

func (in In) String() string {
	parts := make([]string, len(in.Values))
	for i, v := range in.Values {
		parts[i] = fmt.Sprintf("%s = %s", in.Column, literal(v))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// And is true when every term is.
type And []Predicate

func (a And) Match(row record.Row) bool {
	for _, p := range a {
		if !p.Match(row) {
			return false
		}
	}
	return true
}

func (a And) String() string {
	return join(a, " AND ")
}

// Or is true when any term is.
type Or []Predicate

func (o Or) Match(row record.Row) bool {
	for _, p := range o {
		if p.Match(row) {
			return true
		}
	}
	return false
}

func (o Or) String() string {
	return join(o, " OR ")
}

func join(terms []Predicate, sep string) string {
	parts := make([]string, len(terms))
	for i, p := range terms {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// literal renders integers bare and everything else single-quoted. Numeric
// strings are rendered bare as well, since ids are integer columns.
func literal(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case string:
		if _, err := strconv.ParseInt(x, 10, 64); err == nil {
			return x
		}
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	}
	return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
}

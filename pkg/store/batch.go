package store

import (
	"errors"
	"fmt"
	"strings"
)

// Statement is one executable multi-row insert produced by the batch builder
type Statement struct {
	SQL  string
	Args []interface{}
}

var (
	// ErrBadTemplate is returned when the statement template does not
	// contain exactly one values placeholder
	ErrBadTemplate = errors.New("statement template must contain exactly one %s placeholder")

	// ErrRowWidth is returned when rows are empty or unequal in width
	ErrRowWidth = errors.New("all rows must be non-empty and of equal width")
)

// valuesPlaceholder marks where the VALUES block goes in a template
const valuesPlaceholder = "%s"

// BuildBatchStatements turns equal-width rows into one or more executable
// multi-row INSERT statements. The template must contain exactly one %s
// placeholder, which is replaced by ($1,$2,...),($3,$4,...) groups with
// positional parameter numbering restarting in each emitted statement.
//
// Each statement carries at most pageSize rows; pageSize <= 0 means one
// statement containing everything. Row order is preserved. Empty input
// produces no statements and no error.
//
// Validation failures here are programmer errors, not runtime conditions.
func BuildBatchStatements(template string, rows [][]interface{}, pageSize int) ([]Statement, error) {
	if strings.Count(template, valuesPlaceholder) != 1 {
		return nil, ErrBadTemplate
	}

	if len(rows) == 0 {
		return nil, nil
	}

	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: first row is empty", ErrRowWidth)
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrRowWidth, i, len(row), width)
		}
	}

	if pageSize <= 0 {
		pageSize = len(rows)
	}

	head, tail, _ := strings.Cut(template, valuesPlaceholder)

	statements := make([]Statement, 0, (len(rows)+pageSize-1)/pageSize)
	for start := 0; start < len(rows); start += pageSize {
		end := start + pageSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var values strings.Builder
		args := make([]interface{}, 0, len(chunk)*width)
		param := 1
		for i, row := range chunk {
			if i > 0 {
				values.WriteString(", ")
			}
			values.WriteByte('(')
			for j := range row {
				if j > 0 {
					values.WriteString(", ")
				}
				fmt.Fprintf(&values, "$%d", param)
				param++
			}
			values.WriteByte(')')
			args = append(args, row...)
		}

		statements = append(statements, Statement{
			SQL:  head + values.String() + tail,
			Args: args,
		})
	}

	return statements, nil
}

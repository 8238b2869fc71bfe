package store

import (
	"errors"
	"fmt"
	"testing"
)

func makeRows(n, width int) [][]interface{} {
	rows := make([][]interface{}, n)
	for i := range rows {
		row := make([]interface{}, width)
		for j := range row {
			row[j] = fmt.Sprintf("r%dc%d", i, j)
		}
		rows[i] = row
	}
	return rows
}

func TestBuildBatchStatementsCounts(t *testing.T) {
	cases := []struct {
		rows     int
		pageSize int
		want     int
	}{
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{1000, 1000, 1},
		{1001, 1000, 2},
		{7, 1, 7},
	}

	for _, c := range cases {
		stmts, err := BuildBatchStatements("INSERT INTO t (a, b) VALUES %s", makeRows(c.rows, 2), c.pageSize)
		if err != nil {
			t.Fatalf("rows=%d page=%d: unexpected error %v", c.rows, c.pageSize, err)
		}
		if len(stmts) != c.want {
			t.Errorf("rows=%d page=%d: expected %d statements, got %d", c.rows, c.pageSize, c.want, len(stmts))
		}

		// Row counts sum to n, each statement carries at most pageSize rows
		total := 0
		for _, s := range stmts {
			rowCount := len(s.Args) / 2
			if rowCount > c.pageSize {
				t.Errorf("rows=%d page=%d: statement carries %d rows", c.rows, c.pageSize, rowCount)
			}
			total += rowCount
		}
		if total != c.rows {
			t.Errorf("rows=%d page=%d: statements carry %d rows total", c.rows, c.pageSize, total)
		}
	}
}

func TestBuildBatchStatementsSQL(t *testing.T) {
	rows := [][]interface{}{
		{1, "alice"},
		{2, "bob"},
		{3, "carol"},
	}

	stmts, err := BuildBatchStatements("INSERT INTO accounts (id, username) VALUES %s ON CONFLICT DO NOTHING", rows, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(stmts))
	}

	wantSQL := "INSERT INTO accounts (id, username) VALUES ($1, $2), ($3, $4) ON CONFLICT DO NOTHING"
	if stmts[0].SQL != wantSQL {
		t.Errorf("First statement SQL:\n got %s\nwant %s", stmts[0].SQL, wantSQL)
	}

	// Parameter numbering restarts per statement
	wantSQL2 := "INSERT INTO accounts (id, username) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	if stmts[1].SQL != wantSQL2 {
		t.Errorf("Second statement SQL:\n got %s\nwant %s", stmts[1].SQL, wantSQL2)
	}

	// Row order preserved within and across statements
	if stmts[0].Args[1] != "alice" || stmts[0].Args[3] != "bob" || stmts[1].Args[1] != "carol" {
		t.Errorf("Row order not preserved: %v / %v", stmts[0].Args, stmts[1].Args)
	}
}

func TestBuildBatchStatementsPageSizeZero(t *testing.T) {
	for _, pageSize := range []int{0, -1, -100} {
		stmts, err := BuildBatchStatements("INSERT INTO t (a) VALUES %s", makeRows(42, 1), pageSize)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(stmts) != 1 {
			t.Errorf("pageSize=%d: expected one statement, got %d", pageSize, len(stmts))
		}
		if len(stmts[0].Args) != 42 {
			t.Errorf("pageSize=%d: expected all 42 rows in one statement", pageSize)
		}
	}
}

func TestBuildBatchStatementsEmptyInput(t *testing.T) {
	stmts, err := BuildBatchStatements("INSERT INTO t (a) VALUES %s", nil, 10)
	if err != nil {
		t.Fatalf("Expected no error for empty input, got %v", err)
	}
	if len(stmts) != 0 {
		t.Errorf("Expected zero statements for empty input, got %d", len(stmts))
	}
}

func TestBuildBatchStatementsValidation(t *testing.T) {
	rows := makeRows(2, 2)

	// No placeholder
	if _, err := BuildBatchStatements("INSERT INTO t (a, b) VALUES (1, 2)", rows, 10); !errors.Is(err, ErrBadTemplate) {
		t.Errorf("Expected ErrBadTemplate for missing placeholder, got %v", err)
	}

	// Two placeholders
	if _, err := BuildBatchStatements("INSERT INTO t VALUES %s %s", rows, 10); !errors.Is(err, ErrBadTemplate) {
		t.Errorf("Expected ErrBadTemplate for duplicate placeholder, got %v", err)
	}

	// Unequal widths
	uneven := [][]interface{}{{1, 2}, {3}}
	if _, err := BuildBatchStatements("INSERT INTO t VALUES %s", uneven, 10); !errors.Is(err, ErrRowWidth) {
		t.Errorf("Expected ErrRowWidth for unequal rows, got %v", err)
	}

	// Empty first row
	empty := [][]interface{}{{}}
	if _, err := BuildBatchStatements("INSERT INTO t VALUES %s", empty, 10); !errors.Is(err, ErrRowWidth) {
		t.Errorf("Expected ErrRowWidth for empty first row, got %v", err)
	}
}

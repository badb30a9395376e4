package validator

import (
	"fmt"

	"github.com/nu0ma/dbfixture/dataset"
)

type Validator struct {
	options ComparisonOptions
}

func New() *Validator {
	return NewWithOptions(DefaultComparisonOptions())
}

func NewWithOptions(options ComparisonOptions) *Validator {
	return &Validator{options: options}
}

// CompareTable checks that actual holds exactly the rows of expected over
// expected's columns. Row order is not significant. The row count is checked
// first, then actual is projected onto expected's columns, then rows are
// matched. It returns nil or the first *MismatchError found.
func (v *Validator) CompareTable(expected, actual *dataset.Table) error {
	name := expected.Name()

	if expected.RowCount() != actual.RowCount() {
		return &MismatchError{
			Kind:     MismatchRowCount,
			Table:    name,
			Expected: expected.RowCount(),
			Actual:   actual.RowCount(),
		}
	}

	projected, err := dataset.IncludedColumns(actual, expected.Metadata().Columns)
	if err != nil {
		return &MismatchError{Kind: MismatchColumn, Table: name, Column: missingColumn(expected, actual), Err: err}
	}

	return v.matchRows(name, expected, projected)
}

// matchRows pairs expected rows one to one with actual rows equal in every
// column. Pairs are found with augmenting paths, so a complete pairing is
// found whenever one exists, float tolerance included.
func (v *Validator) matchRows(tableName string, expected, actual *dataset.Table) error {
	n, m := expected.RowCount(), actual.RowCount()

	edges := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if v.rowEqual(expected.Row(i), actual.Row(j)) {
				edges[i] = append(edges[i], j)
			}
		}
	}

	owner := make([]int, m)
	for j := range owner {
		owner[j] = -1
	}
	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for _, j := range edges[i] {
			if seen[j] {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || augment(owner[j], seen) {
				owner[j] = i
				return true
			}
		}
		return false
	}

	unmatched := -1
	for i := 0; i < n; i++ {
		if !augment(i, make([]bool, m)) && unmatched < 0 {
			unmatched = i
		}
	}
	if unmatched < 0 {
		return nil
	}

	used := make([]bool, m)
	for j, i := range owner {
		used[j] = i >= 0
	}
	return v.describeMismatch(tableName, unmatched, expected, actual, used)
}

func (v *Validator) rowEqual(expected, actual []any) bool {
	for c := range expected {
		if !v.compareValues(expected[c], actual[c]) {
			return false
		}
	}
	return true
}

// describeMismatch reports the first differing column between expected row i
// and the unused actual row sharing the most column values with it.
func (v *Validator) describeMismatch(tableName string, i int, expected, actual *dataset.Table, used []bool) error {
	want := expected.Row(i)
	best, bestScore := -1, -1
	for j := 0; j < actual.RowCount(); j++ {
		if used[j] {
			continue
		}
		score := 0
		for c := range want {
			if v.compareValues(want[c], actual.Row(j)[c]) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = j, score
		}
	}

	cols := expected.Metadata().Columns
	if best < 0 {
		// unreachable while row counts agree
		return fmt.Errorf("table %s: no candidate row for expected row %d", tableName, i+1)
	}
	got := actual.Row(best)
	for c := range want {
		if !v.compareValues(want[c], got[c]) {
			return &MismatchError{
				Kind:     MismatchValue,
				Table:    tableName,
				Column:   cols[c].Name,
				Row:      i + 1,
				Expected: want[c],
				Actual:   got[c],
			}
		}
	}
	return fmt.Errorf("table %s: expected row %d has no match", tableName, i+1)
}

func missingColumn(expected, actual *dataset.Table) string {
	meta := actual.Metadata()
	for _, c := range expected.Metadata().Columns {
		if meta.ColumnIndex(c.Name) < 0 {
			return c.Name
		}
	}
	return ""
}

package dataprocessing

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"datacleaner/pkg/contracts/domain"
)

var ErrUnknownStrategy = errors.New("unknown missing value strategy")

// MissingCounts returns the number of missing values per column.
func MissingCounts(ds *Dataset) []domain.ColumnInfo {
	return ds.Info().Columns
}

// MissingMatrix marks missing cells for up to maxRows rows. maxRows <= 0
// means all rows.
func MissingMatrix(ds *Dataset, maxRows int) domain.MissingMatrix {
	rows := ds.Rows()
	m := domain.MissingMatrix{Columns: ds.Names()}
	if maxRows > 0 && rows > maxRows {
		rows = maxRows
		m.Truncated = true
	}
	columns := ds.Columns()
	m.Rows = make([][]bool, rows)
	for i := 0; i < rows; i++ {
		row := make([]bool, len(columns))
		for j, c := range columns {
			row[j] = c.Values[i] == nil
		}
		m.Rows[i] = row
	}
	return m
}

// ApplyMissingStrategy treats missing values in place.
func ApplyMissingStrategy(ds *Dataset, strategy domain.MissingStrategy) (domain.FillReport, error) {
	report := domain.FillReport{
		Strategy:   strategy,
		RowsBefore: ds.Rows(),
		Filled:     make(map[string]int),
	}

	switch strategy {
	case domain.MissingNone:
	case domain.MissingDrop:
		dropIncompleteRows(ds)
	case domain.MissingMean, domain.MissingMedian:
		for _, col := range ds.Columns() {
			if !col.Kind.IsNumeric() {
				continue
			}
			filled, promoted := fillNumeric(col, strategy)
			if filled > 0 {
				report.Filled[col.Name] = filled
			}
			if promoted {
				report.Promoted = append(report.Promoted, col.Name)
			}
		}
	case domain.MissingMode:
		for _, col := range ds.Columns() {
			mode, ok := columnMode(col)
			if !ok {
				continue
			}
			if filled := fillWith(col, mode); filled > 0 {
				report.Filled[col.Name] = filled
			}
		}
	default:
		return report, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	report.RowsAfter = ds.Rows()
	return report, nil
}

func dropIncompleteRows(ds *Dataset) {
	columns := ds.Columns()
	keep := make([]bool, ds.Rows())
	for i := range keep {
		keep[i] = true
		for _, c := range columns {
			if c.Values[i] == nil {
				keep[i] = false
				break
			}
		}
	}
	ds.keepRows(keep)
}

// fillNumeric fills a numeric column with its mean or median. An integer
// column is promoted to float when the fill value has a fractional part.
func fillNumeric(col *Column, strategy domain.MissingStrategy) (filled int, promoted bool) {
	xs := numericValues(col)
	if len(xs) == 0 || len(xs) == col.Len() {
		return 0, false
	}

	var fill float64
	if strategy == domain.MissingMean {
		fill = stat.Mean(xs, nil)
	} else {
		sort.Float64s(xs)
		fill = quantile(xs, 0.5)
	}

	if col.Kind == domain.KindInteger {
		if isIntegral(fill) {
			return fillWith(col, int64(fill)), false
		}
		for i, v := range col.Values {
			if n, ok := v.(int64); ok {
				col.Values[i] = float64(n)
			}
		}
		col.Kind = domain.KindFloat
		return fillWith(col, fill), true
	}
	return fillWith(col, fill), false
}

func fillWith(col *Column, v any) int {
	n := 0
	for i, cur := range col.Values {
		if cur == nil {
			col.Values[i] = v
			n++
		}
	}
	return n
}

// columnMode returns the most frequent present value. Ties go to the value
// seen first.
func columnMode(col *Column) (any, bool) {
	counts := valueCounts(col)
	if len(counts) == 0 {
		return nil, false
	}
	return counts[0].Value, true
}

// DuplicateCount returns the number of rows that repeat an earlier row.
func DuplicateCount(ds *Dataset) int {
	n := 0
	for _, dup := range duplicateRows(ds) {
		if dup {
			n++
		}
	}
	return n
}

// DropDuplicates removes repeated rows, keeping the first occurrence, and
// returns the number removed.
func DropDuplicates(ds *Dataset) int {
	dups := duplicateRows(ds)
	keep := make([]bool, len(dups))
	removed := 0
	for i, dup := range dups {
		keep[i] = !dup
		if dup {
			removed++
		}
	}
	if removed > 0 {
		ds.keepRows(keep)
	}
	return removed
}

// duplicateRows flags rows equal to an earlier row. Missing equals missing.
func duplicateRows(ds *Dataset) []bool {
	columns := ds.Columns()
	seen := make(map[string]struct{}, ds.Rows())
	dups := make([]bool, ds.Rows())
	for i := range dups {
		key := make([]byte, 0, 16*len(columns))
		for _, c := range columns {
			k := valueKey(c.Values[i])
			key = append(key, fmt.Sprintf("%d:", len(k))...)
			key = append(key, k...)
		}
		if _, ok := seen[string(key)]; ok {
			dups[i] = true
			continue
		}
		seen[string(key)] = struct{}{}
	}
	return dups
}

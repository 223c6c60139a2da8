package dataprocessing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"datacleaner/pkg/contracts/domain"
)

var (
	ErrNotNumeric         = errors.New("column is not numeric")
	ErrNoData             = errors.New("column has no values")
	ErrInvalidBins        = errors.New("bin count must be positive")
	ErrUnknownAggregation = errors.New("unknown aggregation")
)

// DefaultBins is the histogram bin count used when none is requested.
const DefaultBins = 10

// numericValues returns the finite values of a numeric column.
func numericValues(col *Column) []float64 {
	xs := make([]float64, 0, col.Len())
	for _, v := range col.Values {
		f, ok := toNumber(v)
		if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
			continue
		}
		xs = append(xs, f)
	}
	return xs
}

func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	}
	return 0, false
}

func numericColumn(ds *Dataset, name string) (*Column, error) {
	col, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	if !col.Kind.IsNumeric() {
		return nil, &ColumnError{Name: name, Kind: col.Kind, Err: ErrNotNumeric}
	}
	return col, nil
}

// quantile interpolates linearly between the closest ranks of sorted xs,
// matching the default method of most dataframe libraries.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func ptr[T any](v T) *T { return &v }

// Describe computes summary statistics for every column.
func Describe(ds *Dataset) []domain.ColumnSummary {
	columns := ds.Columns()
	out := make([]domain.ColumnSummary, 0, len(columns))
	for _, col := range columns {
		out = append(out, describeColumn(col))
	}
	return out
}

func describeColumn(col *Column) domain.ColumnSummary {
	s := domain.ColumnSummary{
		Name:  col.Name,
		Kind:  col.Kind,
		Count: col.Len() - col.MissingCount(),
	}

	if col.Kind.IsNumeric() {
		xs := numericValues(col)
		if len(xs) == 0 {
			return s
		}
		sort.Float64s(xs)
		s.Mean = ptr(stat.Mean(xs, nil))
		if len(xs) > 1 {
			s.Std = ptr(stat.StdDev(xs, nil))
		}
		s.Min = ptr(xs[0])
		s.P25 = ptr(quantile(xs, 0.25))
		s.P50 = ptr(quantile(xs, 0.5))
		s.P75 = ptr(quantile(xs, 0.75))
		s.Max = ptr(xs[len(xs)-1])
		return s
	}

	counts := valueCounts(col)
	if len(counts) > 0 {
		s.Unique = ptr(len(counts))
		s.Top = JSONValue(counts[0].Value)
		s.Freq = ptr(counts[0].Count)
	}

	if col.Kind == domain.KindDate {
		var first, last time.Time
		for _, v := range col.Values {
			t, ok := v.(time.Time)
			if !ok {
				continue
			}
			if first.IsZero() || t.Before(first) {
				first = t
			}
			if last.IsZero() || t.After(last) {
				last = t
			}
		}
		if !first.IsZero() {
			s.First = ptr(first)
			s.Last = ptr(last)
		}
	}
	return s
}

// ValueCounts returns the distinct present values of a column, most frequent
// first. Ties keep first-appearance order.
func ValueCounts(ds *Dataset, column string) ([]domain.ValueCount, error) {
	col, err := ds.Column(column)
	if err != nil {
		return nil, err
	}
	counts := valueCounts(col)
	for i := range counts {
		counts[i].Value = JSONValue(counts[i].Value)
	}
	return counts, nil
}

func valueCounts(col *Column) []domain.ValueCount {
	index := make(map[string]int)
	var counts []domain.ValueCount
	for _, v := range col.Values {
		if v == nil {
			continue
		}
		k := valueKey(v)
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, domain.ValueCount{Value: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// Histogram splits a numeric column into equal width bins. The last bin
// includes its upper edge.
func Histogram(ds *Dataset, column string, bins int) (domain.Histogram, error) {
	h := domain.Histogram{Column: column}
	if bins <= 0 {
		return h, ErrInvalidBins
	}
	col, err := numericColumn(ds, column)
	if err != nil {
		return h, err
	}
	xs := numericValues(col)
	if len(xs) == 0 {
		h.Bins = []domain.HistogramBin{}
		return h, nil
	}
	sort.Float64s(xs)

	lo, hi := xs[0], xs[len(xs)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)

	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, xs, nil)
	h.Bins = make([]domain.HistogramBin, bins)
	for i := range h.Bins {
		h.Bins[i] = domain.HistogramBin{Lower: edges[i], Upper: edges[i+1], Count: int(counts[i])}
	}
	return h, nil
}

// BoxPlot computes the five-number summary of a numeric column with whiskers
// at the furthest values within 1.5 IQR of the quartiles.
func BoxPlot(ds *Dataset, column string) (domain.BoxPlot, error) {
	bp := domain.BoxPlot{Column: column, Outliers: []domain.Outlier{}}
	col, err := numericColumn(ds, column)
	if err != nil {
		return bp, err
	}
	xs := numericValues(col)
	if len(xs) == 0 {
		return bp, &ColumnError{Name: column, Err: ErrNoData}
	}
	sort.Float64s(xs)

	bp.Count = len(xs)
	bp.Min = xs[0]
	bp.Max = xs[len(xs)-1]
	bp.Q1 = quantile(xs, 0.25)
	bp.Median = quantile(xs, 0.5)
	bp.Q3 = quantile(xs, 0.75)

	iqr := bp.Q3 - bp.Q1
	lowFence, highFence := bp.Q1-1.5*iqr, bp.Q3+1.5*iqr
	bp.LowerWhisker, bp.UpperWhisker = bp.Q1, bp.Q3
	for _, x := range xs {
		if x >= lowFence {
			bp.LowerWhisker = x
			break
		}
	}
	for i := len(xs) - 1; i >= 0; i-- {
		if xs[i] <= highFence {
			bp.UpperWhisker = xs[i]
			break
		}
	}

	for i, v := range col.Values {
		x, ok := toNumber(v)
		if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if x < lowFence || x > highFence {
			bp.Outliers = append(bp.Outliers, domain.Outlier{Row: i, Value: x})
		}
	}
	return bp, nil
}

// Outliers lists the values of a numeric column outside the boxplot
// whiskers, in row order.
func Outliers(ds *Dataset, column string) ([]domain.Outlier, error) {
	bp, err := BoxPlot(ds, column)
	if err != nil {
		return nil, err
	}
	return bp.Outliers, nil
}

// Correlation computes Pearson coefficients between every pair of numeric
// columns over the rows where both are present.
func Correlation(ds *Dataset) domain.CorrelationMatrix {
	var numeric []*Column
	for _, col := range ds.Columns() {
		if col.Kind.IsNumeric() {
			numeric = append(numeric, col)
		}
	}

	m := domain.CorrelationMatrix{
		Columns: make([]string, len(numeric)),
		Values:  make([][]*float64, len(numeric)),
	}
	for i, a := range numeric {
		m.Columns[i] = a.Name
		m.Values[i] = make([]*float64, len(numeric))
	}
	for i, a := range numeric {
		for j := i; j < len(numeric); j++ {
			xs, ys, _ := pairs(a, numeric[j])
			var r *float64
			if len(xs) > 1 {
				if c := stat.Correlation(xs, ys, nil); !math.IsNaN(c) {
					r = ptr(c)
				}
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func pairs(a, b *Column) (xs, ys []float64, rows []int) {
	for i := range a.Values {
		x, okx := toNumber(a.Values[i])
		y, oky := toNumber(b.Values[i])
		if !okx || !oky || math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
		rows = append(rows, i)
	}
	return xs, ys, rows
}

// Scatter returns the rows where both numeric columns are present.
func Scatter(ds *Dataset, x, y string) ([]domain.ScatterPoint, error) {
	cx, err := numericColumn(ds, x)
	if err != nil {
		return nil, err
	}
	cy, err := numericColumn(ds, y)
	if err != nil {
		return nil, err
	}
	xs, ys, rows := pairs(cx, cy)
	points := make([]domain.ScatterPoint, len(xs))
	for i := range xs {
		points[i] = domain.ScatterPoint{Row: rows[i], X: xs[i], Y: ys[i]}
	}
	return points, nil
}

// GroupBy aggregates value per distinct key of by. Rows with a missing key
// are dropped and groups are returned in key order. count works on any
// column; the other aggregations need a numeric one.
func GroupBy(ds *Dataset, by, value string, agg domain.Aggregation) ([]domain.GroupResult, error) {
	keyCol, err := ds.Column(by)
	if err != nil {
		return nil, err
	}
	valCol, err := ds.Column(value)
	if err != nil {
		return nil, err
	}
	switch agg {
	case domain.AggCount:
	case domain.AggSum, domain.AggMean, domain.AggMin, domain.AggMax:
		if !valCol.Kind.IsNumeric() {
			return nil, &ColumnError{Name: value, Kind: valCol.Kind, Err: ErrNotNumeric}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregation, agg)
	}

	type group struct {
		key   any
		xs    []float64
		count int
	}
	index := make(map[string]*group)
	var groups []*group
	for i, k := range keyCol.Values {
		if k == nil {
			continue
		}
		id := valueKey(k)
		g, ok := index[id]
		if !ok {
			g = &group{key: k}
			index[id] = g
			groups = append(groups, g)
		}
		v := valCol.Values[i]
		if v == nil {
			continue
		}
		g.count++
		if x, ok := toNumber(v); ok && !math.IsNaN(x) {
			g.xs = append(g.xs, x)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return compareValues(groups[i].key, groups[j].key) < 0
	})

	out := make([]domain.GroupResult, len(groups))
	for i, g := range groups {
		out[i] = domain.GroupResult{Key: JSONValue(g.key), Value: aggregate(g.xs, g.count, agg)}
	}
	return out, nil
}

func aggregate(xs []float64, count int, agg domain.Aggregation) *float64 {
	switch agg {
	case domain.AggCount:
		return ptr(float64(count))
	case domain.AggSum:
		return ptr(floats.Sum(xs))
	}
	if len(xs) == 0 {
		return nil
	}
	switch agg {
	case domain.AggMean:
		return ptr(stat.Mean(xs, nil))
	case domain.AggMin:
		return ptr(floats.Min(xs))
	default:
		return ptr(floats.Max(xs))
	}
}

// Trend averages value for each distinct point of the time column, in time
// order.
func Trend(ds *Dataset, timeColumn, value string) ([]domain.GroupResult, error) {
	return GroupBy(ds, timeColumn, value, domain.AggMean)
}

package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"datacleaner/pkg/contracts/domain"
)

// Format identifies an input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyInput        = errors.New("input contains no data")
	ErrSheetRequired     = errors.New("workbook has several sheets; one must be selected")
	ErrSheetNotFound     = errors.New("sheet not found")
)

// SheetSelectionError is returned when a workbook holds several sheets and
// the caller did not name one.
type SheetSelectionError struct {
	Sheets []string
}

func (e *SheetSelectionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSheetRequired, strings.Join(e.Sheets, ", "))
}

func (e *SheetSelectionError) Unwrap() error { return ErrSheetRequired }

// FormatFromFilename picks the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm", ".xls":
		return FormatXLSX, nil
	case ".json", ".ndjson", ".jsonl":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}

// LoadOptions controls ingestion.
type LoadOptions struct {
	Format    Format
	Sheet     string
	Delimiter rune
}

// Loader builds datasets from CSV, XLSX and JSON input.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// LoadFile opens path and loads it. The format defaults to the one implied
// by the file extension.
func (l *Loader) LoadFile(path string, opts LoadOptions) (*Dataset, error) {
	if opts.Format == "" {
		format, err := FormatFromFilename(path)
		if err != nil {
			return nil, err
		}
		opts.Format = format
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return l.Load(f, opts)
}

// Load reads r according to opts.
func (l *Loader) Load(r io.Reader, opts LoadOptions) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch opts.Format {
	case FormatCSV:
		ds, err = l.loadCSV(r, opts.Delimiter)
	case FormatXLSX:
		ds, err = l.loadXLSX(r, opts.Sheet)
	case FormatJSON:
		ds, err = l.loadJSON(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Info("dataset loaded",
		slog.String("format", string(opts.Format)),
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", ds.Width()))
	return ds, nil
}

// ListSheets returns the sheet names of an XLSX workbook.
func ListSheets(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (l *Loader) loadCSV(r io.Reader, delimiter rune) (*Dataset, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if delimiter != 0 {
		reader.Comma = delimiter
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return fromRecords(records)
}

func (l *Loader) loadXLSX(r io.Reader, sheet string) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	switch {
	case sheet == "" && len(sheets) > 1:
		return nil, &SheetSelectionError{Sheets: sheets}
	case sheet == "" && len(sheets) == 1:
		sheet = sheets[0]
	case sheet == "":
		return nil, ErrEmptyInput
	}

	found := false
	for _, name := range sheets {
		if name == sheet {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	l.logger.Debug("sheet read", slog.String("sheet", sheet), slog.Int("rows", len(rows)))
	return fromRecords(rows)
}

// fromRecords treats the first record as the header and infers a kind for
// every column.
func fromRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	if width == 0 {
		return nil, ErrEmptyInput
	}

	padded := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, width)
		copy(row, rec)
		padded[i] = row
	}
	padded[0] = normalizeHeader(padded[0])

	return inferDataset(padded)
}

// normalizeHeader names blank headers "Unnamed: i" and suffixes repeated
// names with ".1", ".2" and so on.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			suffix[h]++
			name = fmt.Sprintf("%s.%d", h, suffix[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// inferDataset runs gota type detection over header plus rows.
func inferDataset(records [][]string) (*Dataset, error) {
	header := records[0]
	rows := len(records) - 1

	if rows == 0 {
		columns := make([]*Column, len(header))
		for i, name := range header {
			columns[i] = NewColumn(name, domain.KindString, []any{})
		}
		return NewDataset(columns...)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(naTokens),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to infer column types: %w", df.Err)
	}

	columns := make([]*Column, 0, len(header))
	for j, name := range df.Names() {
		s := df.Col(name)
		if s.Type() == series.Bool && !onlyBoolLiterals(records[1:], j) {
			// gota reads a mix of booleans and integers as bool.
			s = series.New(rawColumn(records[1:], j), series.String, name)
		}
		columns = append(columns, columnFromSeries(name, s))
	}
	return NewDataset(columns...)
}

func rawColumn(rows [][]string, j int) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		if isNAToken(row[j]) {
			out[i] = "NaN"
			continue
		}
		out[i] = row[j]
	}
	return out
}

func onlyBoolLiterals(rows [][]string, j int) bool {
	for _, row := range rows {
		switch v := row[j]; {
		case v == "true", v == "false", isNAToken(v):
		default:
			return false
		}
	}
	return true
}

func columnFromSeries(name string, s series.Series) *Column {
	values := make([]any, s.Len())
	kind := domain.KindString

	switch s.Type() {
	case series.Int:
		kind = domain.KindInteger
		for i := range values {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			if n, err := e.Int(); err == nil {
				values[i] = int64(n)
			}
		}
	case series.Float:
		kind = domain.KindFloat
		for i := range values {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			values[i] = e.Float()
		}
	case series.Bool:
		kind = domain.KindBool
		for i := range values {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			if b, err := e.Bool(); err == nil {
				values[i] = b
			}
		}
	default:
		for i := range values {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			values[i] = e.String()
		}
	}
	return NewColumn(name, kind, values)
}

// loadJSON accepts an array of records, newline delimited records, or a
// column oriented object of arrays.
func (l *Loader) loadJSON(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyInput
	}

	var table *jsonTable
	switch trimmed[0] {
	case '[':
		table, err = decodeRecordArray(trimmed)
	case '{':
		table, err = decodeObjectStream(trimmed)
	default:
		err = fmt.Errorf("%w: JSON input must be an array or object", ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	if len(table.names) == 0 {
		return nil, ErrEmptyInput
	}

	columns := make([]*Column, len(table.names))
	for i, name := range table.names {
		columns[i] = columnFromJSON(name, table.values[name], table.rows)
	}
	return NewDataset(columns...)
}

// jsonTable collects values per key, preserving first-seen key order.
type jsonTable struct {
	names  []string
	values map[string][]any
	rows   int
}

func newJSONTable() *jsonTable {
	return &jsonTable{values: make(map[string][]any)}
}

func (t *jsonTable) set(key string, row int, v any) {
	col, ok := t.values[key]
	if !ok {
		t.names = append(t.names, key)
	}
	for len(col) <= row {
		col = append(col, nil)
	}
	col[row] = v
	t.values[key] = col
}

func decodeRecordArray(data []byte) (*jsonTable, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	table := newJSONTable()
	for dec.More() {
		if err := decodeRecord(dec, table); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return table, nil
}

// decodeObjectStream handles both newline delimited records and a single
// column oriented object such as {"a": [1, 2], "b": [3, 4]}.
func decodeObjectStream(data []byte) (*jsonTable, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	table := newJSONTable()
	for dec.More() {
		if err := decodeRecord(dec, table); err != nil {
			return nil, err
		}
	}

	if table.rows == 1 && isColumnOriented(table) {
		return pivotColumns(table), nil
	}
	return table, nil
}

func decodeRecord(dec *json.Decoder, table *jsonTable) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected a JSON object per record", ErrUnsupportedFormat)
	}

	row := table.rows
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
		key, _ := keyTok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
		table.set(key, row, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	table.rows++
	return nil
}

func isColumnOriented(table *jsonTable) bool {
	for _, name := range table.names {
		if _, ok := table.values[name][0].([]any); !ok {
			return false
		}
	}
	return true
}

func pivotColumns(table *jsonTable) *jsonTable {
	out := newJSONTable()
	for _, name := range table.names {
		arr := table.values[name][0].([]any)
		out.names = append(out.names, name)
		out.values[name] = arr
		if len(arr) > out.rows {
			out.rows = len(arr)
		}
	}
	return out
}

// columnFromJSON keeps native JSON types when every present value agrees and
// falls back to object otherwise.
func columnFromJSON(name string, raw []any, rows int) *Column {
	values := make([]any, rows)
	copy(values, raw)

	var numbers, bools, strs, others int
	allInts := true
	for i, v := range values {
		switch val := v.(type) {
		case nil:
		case json.Number:
			num, missing, ok := parseNumber(val)
			if !ok || missing {
				values[i] = nil
				continue
			}
			if _, isInt := num.(int64); !isInt {
				allInts = false
			}
			values[i] = num
			numbers++
		case bool:
			bools++
		case string:
			if isNAToken(strings.TrimSpace(val)) {
				values[i] = nil
				continue
			}
			strs++
		default:
			others++
		}
	}

	kinds := 0
	for _, n := range []int{numbers, bools, strs, others} {
		if n > 0 {
			kinds++
		}
	}

	switch {
	case kinds == 0:
		return NewColumn(name, domain.KindString, values)
	case kinds > 1 || others > 0:
		return NewColumn(name, domain.KindObject, values)
	case bools > 0:
		return NewColumn(name, domain.KindBool, values)
	case strs > 0:
		return NewColumn(name, domain.KindString, values)
	case allInts:
		return NewColumn(name, domain.KindInteger, values)
	}
	for i, v := range values {
		if n, ok := v.(int64); ok {
			values[i] = float64(n)
		}
	}
	return NewColumn(name, domain.KindFloat, values)
}

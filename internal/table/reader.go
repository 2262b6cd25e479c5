package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dimreduce/internal/embed"
)

var (
	ErrInvalidColumns      = errors.New("table: field list contains invalid column numbers")
	ErrWeightColumnMissing = errors.New("table: weight column is not found")
	ErrNoRows              = errors.New("table: no data rows")
)

type ReadOptions struct {
	// Columns are 1-based input column numbers, as returned by ParseColumns.
	Columns []int
	// WeightColumn is a 1-based column number, 0 for uniform weights.
	WeightColumn    int
	NoHeader        bool
	Delimiter       byte
	RecordDelimiter byte
}

type Dataset struct {
	// Header is nil when the input has none.
	Header  []string
	Records [][]string
	Input   *mat.Dense
	// Weights is nil when no weight column was requested.
	Weights []float64
}

func (d *Dataset) Len() int { return len(d.Records) }

func Read(r io.Reader, opts ReadOptions) (*Dataset, error) {
	if len(opts.Columns) == 0 {
		return nil, fmt.Errorf("%w: no columns selected", ErrInvalidColumns)
	}

	cr := csv.NewReader(translate(r, opts.RecordDelimiter))
	if opts.Delimiter != 0 {
		cr.Comma = rune(opts.Delimiter)
	}

	ds := &Dataset{}
	if !opts.NoHeader {
		h, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRows
		}
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		ds.Header = h
	}

	var values []float64
	var weights []float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := len(ds.Records) + 1

		for _, c := range opts.Columns {
			if c > len(rec) {
				return nil, fmt.Errorf("row %d: %w: column %d of %d", row, ErrInvalidColumns, c, len(rec))
			}
			v, err := parseField(rec[c-1])
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", row, c, err)
			}
			values = append(values, v)
		}

		if opts.WeightColumn > 0 {
			if opts.WeightColumn > len(rec) {
				return nil, fmt.Errorf("row %d: %w", row, ErrWeightColumnMissing)
			}
			w, err := parseField(rec[opts.WeightColumn-1])
			if err != nil {
				return nil, fmt.Errorf("row %d weight column %d: %w", row, opts.WeightColumn, err)
			}
			weights = append(weights, w)
		}

		ds.Records = append(ds.Records, rec)
	}

	if len(ds.Records) == 0 {
		return nil, ErrNoRows
	}
	ds.Input = mat.NewDense(len(ds.Records), len(opts.Columns), values)
	if opts.WeightColumn > 0 {
		if err := embed.CheckWeights(weights, len(ds.Records)); err != nil {
			return nil, err
		}
		ds.Weights = weights
	}
	return ds, nil
}

func parseField(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

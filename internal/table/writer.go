package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

type WriteOptions struct {
	Delimiter       byte
	RecordDelimiter byte
}

// Writer emits the output table: one "coordK" column per output coordinate,
// an empty separator column, then the original record.
type Writer struct {
	cw *csv.Writer
}

func NewWriter(w io.Writer, opts WriteOptions) *Writer {
	cw := csv.NewWriter(translateWriter(w, opts.RecordDelimiter))
	if opts.Delimiter != 0 {
		cw.Comma = rune(opts.Delimiter)
	}
	return &Writer{cw: cw}
}

// WriteAll writes header (when non-nil) and one line per record.
func (w *Writer) WriteAll(header []string, records [][]string, coords mat.Matrix) error {
	n, d := coords.Dims()
	if n != len(records) {
		return fmt.Errorf("table: %d coordinate rows for %d records", n, len(records))
	}

	if header != nil {
		line := make([]string, 0, d+1+len(header))
		for k := 1; k <= d; k++ {
			line = append(line, "coord"+strconv.Itoa(k))
		}
		line = append(line, "")
		if err := w.cw.Write(append(line, header...)); err != nil {
			return err
		}
	}

	for i, rec := range records {
		line := make([]string, 0, d+1+len(rec))
		for k := 0; k < d; k++ {
			line = append(line, strconv.FormatFloat(coords.At(i, k), 'f', 4, 64))
		}
		line = append(line, "")
		if err := w.cw.Write(append(line, rec...)); err != nil {
			return err
		}
	}

	w.cw.Flush()
	return w.cw.Error()
}

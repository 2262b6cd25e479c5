package table

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// SnapshotWriter writes the intermediate coordinates every Every iterations
// to <Dir>/<Prefix><seq>.csv, seq being iter/Every zero-padded to five
// digits. It satisfies schedule.Observer.
type SnapshotWriter struct {
	Every   int
	Dir     string
	Prefix  string
	Header  []string
	Records [][]string
	Options WriteOptions

	written int
}

func (s *SnapshotWriter) Observe(iter int, coords mat.Matrix) error {
	if s.Every <= 0 || iter%s.Every != 0 {
		return nil
	}

	path := s.Path(iter / s.Every)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := NewWriter(bw, s.Options).WriteAll(s.Header, s.Records, coords); err != nil {
		f.Close()
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.written++
	return nil
}

func (s *SnapshotWriter) Path(seq int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%05d.csv", s.Prefix, seq))
}

// Written returns the number of snapshot files created.
func (s *SnapshotWriter) Written() int { return s.written }

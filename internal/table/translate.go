package table

import (
	"bytes"
	"io"
)

// encoding/csv only terminates records with newlines; other record
// delimiters are mapped to and from '\n' at the byte level.

type translatingReader struct {
	r        io.Reader
	from, to byte
}

func translate(r io.Reader, delim byte) io.Reader {
	if delim == 0 || delim == '\n' {
		return r
	}
	return &translatingReader{r: r, from: delim, to: '\n'}
}

func (t *translatingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == t.from {
			p[i] = t.to
		}
	}
	return n, err
}

type translatingWriter struct {
	w   io.Writer
	to  byte
	buf []byte
}

func translateWriter(w io.Writer, delim byte) io.Writer {
	if delim == 0 || delim == '\n' {
		return w
	}
	return &translatingWriter{w: w, to: delim}
}

func (t *translatingWriter) Write(p []byte) (int, error) {
	t.buf = append(t.buf[:0], p...)
	for i := bytes.IndexByte(t.buf, '\n'); i >= 0; i = bytes.IndexByte(t.buf, '\n') {
		t.buf[i] = t.to
	}
	n, err := t.w.Write(t.buf)
	if n > len(p) {
		n = len(p)
	}
	return n, err
}

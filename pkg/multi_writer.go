package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// MultiWriter writes to all given writers, and unlike io.MultiWriter
// it does not stop at the first failed write - a broken log file must
// not take down stdout logging too.
type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter(writers ...io.Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (mw *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range mw.writers {
		written, werr := w.Write(p)
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		n += written
	}
	return n, err
}

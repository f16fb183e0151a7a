package receipt

import (
	"fmt"
	"io"
	"sync"

	"github.com/proofpack/go-proofpack/canon"
)

// StreamWriter writes the canonical receipt stream: one canonicalized
// JSON record per line, UTF-8, LF-terminated, writes atomic at record
// granularity. It is safe for concurrent use; each Write holds an
// internal lock for the duration of a single record so that
// interleaved writers never split a line.
type StreamWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamWriter wraps w (typically an *os.File opened for append)
// as a canonical receipt stream sink.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Write appends r to the stream as a single canonicalized JSON line.
func (s *StreamWriter) Write(r Receipt) error {
	line, err := encodeLine(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("receipt: stream write failed: %w", err)
	}
	return nil
}

func encodeLine(r Receipt) ([]byte, error) {
	v, err := canon.FromGo(r.CanonicalFields())
	if err != nil {
		return nil, fmt.Errorf("receipt: encode stream line: %w", err)
	}
	b, err := canon.Bytes(v)
	if err != nil {
		return nil, fmt.Errorf("receipt: encode stream line: %w", err)
	}
	return append(b, '\n'), nil
}

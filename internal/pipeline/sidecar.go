package pipeline

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/tigas/renderer-encoder/internal/model"
)

// ErrIO is returned when the sidecar file cannot be opened.
var ErrIO = errors.New("pipeline: sidecar io failure")

// IOError wraps ErrIO with the path that could not be opened.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("pipeline: open sidecar %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return ErrIO
}

// MetadataSidecar appends one CSV record per encoded frame:
// "<frame_id>,<timestamp_ms>". No header row is written. Flush is
// deferred to Close.
type MetadataSidecar struct {
	file   *os.File
	buf    *bufio.Writer
	writer *csv.Writer
}

// NewMetadataSidecar opens path for writing, truncating any existing
// file.
func NewMetadataSidecar(path string) (*MetadataSidecar, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	w.UseCRLF = false
	return &MetadataSidecar{file: f, buf: buf, writer: w}, nil
}

// Append writes one record for the given metadata.
func (s *MetadataSidecar) Append(meta model.FrameMetadata) error {
	record := []string{
		fmt.Sprintf("%d", meta.FrameID),
		fmt.Sprintf("%d", meta.TimestampMs),
	}
	if err := s.writer.Write(record); err != nil {
		return &IOError{Path: s.file.Name(), Err: err}
	}
	return nil
}

// Close flushes buffered records and closes the underlying file.
func (s *MetadataSidecar) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return &IOError{Path: s.file.Name(), Err: err}
	}
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return &IOError{Path: s.file.Name(), Err: err}
	}
	return s.file.Close()
}

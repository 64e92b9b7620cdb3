// Package csvwriter writes datastore exports as CSV.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Writer is a concurrency-safe CSV writer with an optional header row.
type Writer struct {
	writer *csv.Writer
	closer io.Closer
	logger *zap.Logger
	mu     sync.Mutex
}

// New wraps an io.Writer. Close flushes but does not close the
// underlying writer.
func New(w io.Writer, logger *zap.Logger) *Writer {
	return &Writer{writer: csv.NewWriter(w), logger: logger}
}

// Create opens (truncating) the file at path for CSV output.
func Create(path string, logger *zap.Logger) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create CSV file: %w", err)
	}
	return &Writer{writer: csv.NewWriter(file), closer: file, logger: logger}, nil
}

// WriteHeader writes the column header row.
func (w *Writer) WriteHeader(columns ...string) error {
	return w.Write(columns)
}

// Write appends one record.
func (w *Writer) Write(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("write CSV record: %w", err)
	}
	return nil
}

// Flush flushes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and, when writing to a file, closes it.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		if w.logger != nil {
			w.logger.Error("flush on close failed", zap.Error(err))
		}
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

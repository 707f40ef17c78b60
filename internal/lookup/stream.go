package lookup

import (
	"encoding/json"
	"fmt"
	"io"
)

type flusher interface {
	Flush()
}

// ArrayWriter writes values to w as a JSON array, one element at a time. The
// opening bracket is written with the first element, or by Close when there
// were none.
type ArrayWriter struct {
	w      io.Writer
	n      int
	closed bool
}

// NewArrayWriter returns an ArrayWriter targeting w.
func NewArrayWriter(w io.Writer) *ArrayWriter {
	return &ArrayWriter{w: w}
}

// Len reports the number of elements written so far.
func (a *ArrayWriter) Len() int {
	return a.n
}

// Write appends v to the array and flushes w when it supports flushing.
func (a *ArrayWriter) Write(v any) error {
	if a.closed {
		return fmt.Errorf("write to closed array")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal element: %w", err)
	}
	sep := ","
	if a.n == 0 {
		sep = "["
	}
	if _, err := io.WriteString(a.w, sep); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}
	if _, err := a.w.Write(data); err != nil {
		return fmt.Errorf("write element: %w", err)
	}
	a.n++
	a.flush()
	return nil
}

// Close terminates the array. It is a no-op when called twice.
func (a *ArrayWriter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	tail := "]"
	if a.n == 0 {
		tail = "[]"
	}
	if _, err := io.WriteString(a.w, tail); err != nil {
		return fmt.Errorf("write array end: %w", err)
	}
	a.flush()
	return nil
}

func (a *ArrayWriter) flush() {
	if f, ok := a.w.(flusher); ok {
		f.Flush()
	}
}

// Drain writes every result to the array and closes it. On the first failed
// result it stops and returns that error without closing the array, so a
// partial body is never mistaken for a complete one.
func (a *ArrayWriter) Drain(results <-chan Result) error {
	for res := range results {
		if res.Err != nil {
			return res.Err
		}
		if err := a.Write(res.Metatags); err != nil {
			return err
		}
	}
	return a.Close()
}

// WriteStream renders results to w as a JSON array and reports how many
// elements were written. See ArrayWriter.Drain for error handling.
func WriteStream(w io.Writer, results <-chan Result) (int, error) {
	aw := NewArrayWriter(w)
	err := aw.Drain(results)
	return aw.Len(), err
}

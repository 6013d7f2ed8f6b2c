package cli

import (
	"io"
	"sync"
)

// MultiOutput duplicates writes to every attached writer. Unlike
// io.MultiWriter it keeps going when one writer fails, and writers can be
// attached and detached while in use.
type MultiOutput struct {
	mu      sync.RWMutex
	outputs []io.Writer
}

// NewMultiOutput creates a MultiOutput with the given writers attached.
func NewMultiOutput(outputs ...io.Writer) *MultiOutput {
	m := &MultiOutput{}
	for _, w := range outputs {
		m.Attach(w)
	}
	return m
}

// Attach adds w. Nil writers are ignored.
func (m *MultiOutput) Attach(w io.Writer) {
	if w == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = append(m.outputs, w)
}

// Detach removes w.
func (m *MultiOutput) Detach(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.outputs {
		if o == w {
			m.outputs = append(m.outputs[:i], m.outputs[i+1:]...)
			return
		}
	}
}

// Len returns the number of attached writers.
func (m *MultiOutput) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.outputs)
}

// Write writes p to every attached writer. Errors are ignored and the
// full length is always reported.
func (m *MultiOutput) Write(p []byte) (int, error) {
	m.mu.RLock()
	outputs := append([]io.Writer(nil), m.outputs...)
	m.mu.RUnlock()

	for _, w := range outputs {
		_, _ = w.Write(p)
	}
	return len(p), nil
}

package client

import (
	"fmt"
	"os"
	"sync"

	"github.com/jeffrom/heclog/protocol"
)

// StatePusher is notified when a submission sequence settles: once on
// success, and once when a failed batch is dropped because retry is
// disabled. batch is non-nil only for drops.
type StatePusher interface {
	Push(id string, err error, batch *protocol.Batch) error
}

// NoopStatePusher discards input
type NoopStatePusher struct {
}

// Push implements StatePusher
func (m *NoopStatePusher) Push(id string, err error, batch *protocol.Batch) error {
	return nil
}

// Close implements io.Closer
func (m *NoopStatePusher) Close() error {
	return nil
}

// StateOutputter writes settled batch ids to a file. Intended for use by
// command line applications.
type StateOutputter struct {
	f *os.File
}

// NewStateOutputter returns a new instance of StateOutputter
func NewStateOutputter(f *os.File) *StateOutputter {
	return &StateOutputter{
		f: f,
	}
}

// Push implements StatePusher
func (m *StateOutputter) Push(id string, oerr error, batch *protocol.Batch) error {
	if oerr != nil {
		_, err := fmt.Fprintf(m.f, "%s error: %v\n", id, oerr)
		return err
	}
	_, err := fmt.Fprintf(m.f, "%s ok\n", id)
	return err
}

// Close implements io.Closer
func (m *StateOutputter) Close() error {
	return nil
}

// MockStatePusher saves pushed state so it can be read in tests
type MockStatePusher struct {
	mu      sync.Mutex
	ids     []string
	errs    []error
	batches []*protocol.Batch
	n       int
	serr    error
}

// NewMockStatePusher returns a new instance of MockStatePusher
func NewMockStatePusher() *MockStatePusher {
	return &MockStatePusher{
		ids:     make([]string, 0),
		errs:    make([]error, 0),
		batches: make([]*protocol.Batch, 0),
	}
}

// Push implements StatePusher
func (m *MockStatePusher) Push(id string, oerr error, batch *protocol.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
	m.errs = append(m.errs, oerr)
	m.batches = append(m.batches, batch)
	return m.serr
}

// SetError sets the error to be returned from calls to Push
func (m *MockStatePusher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serr = err
}

// Next returns the next id, error, and batch, starting from the first. if
// there are no more pushed states, the last return value will be false
func (m *MockStatePusher) Next() (string, error, *protocol.Batch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.n >= len(m.ids) {
		return "", nil, nil, false
	}
	id, err, batch := m.ids[m.n], m.errs[m.n], m.batches[m.n]
	m.n++
	return id, err, batch, true
}

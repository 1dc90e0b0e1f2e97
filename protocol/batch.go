package protocol

import (
	"bytes"

	"github.com/jeffrom/heclog/config"
	"github.com/jeffrom/heclog/internal"
)

// Batch represents an ordered collection of serialized events captured from
// the buffer. The wire payload is the records joined by newlines.
// NOTE no trailing newline after the last record
type Batch struct {
	conf    *config.Config
	records [][]byte
	size    int
}

// NewBatch returns a new batch. conf is used to set the buffer growth hint.
func NewBatch(conf *config.Config) *Batch {
	return &Batch{
		conf:    conf,
		records: make([][]byte, 0, conf.MaxBufferSize),
	}
}

// Append adds a copy of one serialized event to the batch.
func (b *Batch) Append(rec []byte) {
	b.records = append(b.records, internal.CopyBytes(rec))
	b.size += len(rec)
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.records)
}

// Empty returns true if the batch contains no records.
func (b *Batch) Empty() bool {
	return len(b.records) == 0
}

// Size returns the total size of the records, excluding separators.
func (b *Batch) Size() int {
	return b.size
}

// Reset sets the batch to its initial state so it can be reused.
func (b *Batch) Reset() {
	b.records = b.records[:0]
	b.size = 0
}

// Copy returns a deep copy of the batch. The engine hands copies to
// submissions so retries resend byte-identical payloads while the original
// is reset for the next accumulation.
func (b *Batch) Copy() *Batch {
	cp := NewBatch(b.conf)
	for _, rec := range b.records {
		cp.Append(rec)
	}
	return cp
}

// Bytes renders the payload, records in append order joined by newlines.
func (b *Batch) Bytes() []byte {
	return bytes.Join(b.records, []byte("\n"))
}

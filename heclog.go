// Package heclog contains a buffered client for HTTP event collectors.
//
// Logger is the producer-facing surface. Record serializes one structured
// event at call time and hands it to a client.Writer, which batches events
// in memory and ships them as newline-delimited JSON, either when the
// configured buffer size is reached, or after a configured quiet interval.
// Failed submissions are retried in the background on a fixed interval for
// as long as retry is enabled; delivery is best effort and failures are
// never surfaced to producers.
package heclog

import (
	"log"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/jeffrom/heclog/client"
	"github.com/jeffrom/heclog/config"
	"github.com/jeffrom/heclog/internal"
	"github.com/jeffrom/heclog/protocol"
)

// Logger serializes structured events and feeds the buffer/flush engine.
type Logger struct {
	conf    *config.Config
	w       *client.Writer
	fields  map[string]interface{}
	enabled int32
	console int32
}

// New returns a new Logger flushing over HTTP to the configured collector.
func New(conf *config.Config) (*Logger, error) {
	if conf == nil {
		conf = config.Default
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return newLogger(conf, client.New(conf)), nil
}

// NewWithPoster returns a new Logger flushing to the supplied transport.
func NewWithPoster(conf *config.Config, poster client.Poster) (*Logger, error) {
	if conf == nil {
		conf = config.Default
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return newLogger(conf, poster), nil
}

func newLogger(conf *config.Config, poster client.Poster) *Logger {
	return &Logger{
		conf:    conf,
		w:       client.NewWriter(conf, poster),
		enabled: 1,
	}
}

// WithFields sets enrichment fields included in every envelope. It should be
// called as part of initialization.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.fields = fields
	return l
}

// Writer returns the underlying buffer/flush engine.
func (l *Logger) Writer() *client.Writer {
	return l.w
}

// Record serializes one event and appends it to the buffer. The event is
// snapshotted here: mutating details after Record returns has no effect on
// what is sent. Disabled loggers drop events before serialization.
func (l *Logger) Record(logType, eventName string, details map[string]interface{}) {
	if !l.Enabled() {
		return
	}

	e := protocol.NewEnvelope(l.conf, logType, eventName, details)
	if len(l.fields) > 0 {
		e.WithFields(l.fields)
	}

	b, err := e.Serialize()
	if err != nil {
		// best effort: a bad detail value must never break the producer
		internal.LogError(err)
		return
	}

	if l.consoleOn() {
		log.Printf("%s %s: %s", logType, eventName, b)
	}

	l.w.Record(b)
}

// Flush submits the buffered events, returning after the first submission
// attempt settles.
func (l *Logger) Flush() error {
	return l.w.Flush()
}

// Close flushes any remaining events and stops the engine.
func (l *Logger) Close() error {
	return l.w.Close()
}

// Enable resumes event recording.
func (l *Logger) Enable() {
	atomic.StoreInt32(&l.enabled, 1)
}

// Disable drops subsequent events until Enable is called. Already buffered
// events are unaffected.
func (l *Logger) Disable() {
	atomic.StoreInt32(&l.enabled, 0)
}

// Enabled returns true if events are being recorded.
func (l *Logger) Enabled() bool {
	return atomic.LoadInt32(&l.enabled) != 0
}

// SetConsole mirrors each recorded event to the process log.
func (l *Logger) SetConsole(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&l.console, v)
}

func (l *Logger) consoleOn() bool {
	return atomic.LoadInt32(&l.console) != 0
}

package client

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jeffrom/heclog/config"
	"github.com/jeffrom/heclog/internal"
	"github.com/jeffrom/heclog/protocol"
)

type writerState uint32

const (
	_ writerState = iota

	stateClosed
	stateIdle
	stateAccumulating
	stateFlushing
)

func (s writerState) String() string {
	switch s {
	case stateClosed:
		return "CLOSED"
	case stateIdle:
		return "IDLE"
	case stateAccumulating:
		return "ACCUMULATING"
	case stateFlushing:
		return "FLUSHING"
	case 0:
		return "UNINITIALIZED"
	default:
		return "INVALID"
	}
}

type writerCmdType uint32

func (c writerCmdType) String() string {
	switch c {
	case cmdChanClosed:
		return "<command channel closed>"
	case cmdMsg:
		return "MESSAGE"
	case cmdFlush:
		return "FLUSH"
	case cmdClose:
		return "CLOSE"
	default:
		return "<invalid writerCmd value>"
	}
}

const (
	cmdChanClosed writerCmdType = iota
	cmdMsg
	cmdFlush
	cmdClose
)

type writerCmd struct {
	kind writerCmdType
	data []byte
	res  *writerRes
}

type writerRes struct {
	err   error
	doneC chan error
}

func (wr *writerRes) vals(err error, doneC chan error) *writerRes {
	wr.err = err
	wr.doneC = doneC
	return wr
}

var cachedFlushCmd = &writerCmd{kind: cmdFlush, res: &writerRes{}}
var cachedCloseCmd = &writerCmd{kind: cmdClose, res: &writerRes{}}

var cmdPool = sync.Pool{
	New: func() interface{} {
		return &writerCmd{res: &writerRes{}}
	},
}

// Writer is the buffer/flush engine. Serialized events accumulate in an
// ordered buffer owned by a single goroutine; a flush captures the full
// buffer as a batch, resets it and hands the batch to the Poster. Flushes
// are triggered by the buffer reaching MaxBufferSize, by the throttle timer
// expiring, or explicitly via Flush. Submissions run detached from the
// buffer, so new events accumulate freely while a batch is in flight.
type Writer struct {
	conf         *config.Config
	poster       Poster
	state        writerState
	autoRetry    int32
	stateManager StatePusher
	stats        *internal.Stats

	timer        *time.Timer
	timerStarted bool
	buf          *protocol.Batch // owned by the writer goroutine
	inC          chan *writerCmd
	resC         chan *writerRes
	stopC        chan struct{}
}

// NewWriter returns a new Writer flushing to the supplied Poster.
func NewWriter(conf *config.Config, poster Poster) *Writer {
	w := &Writer{
		conf:   conf,
		poster: poster,
		state:  stateIdle,
		stats:  internal.NewStats(),
		timer:  time.NewTimer(-1),
		buf:    protocol.NewBatch(conf),
		inC:    make(chan *writerCmd),
		resC:   make(chan *writerRes),
		stopC:  make(chan struct{}),
	}
	if conf.AutoRetry {
		w.autoRetry = 1
	}

	go w.loop()
	return w
}

// WithStateHandler sets a state pusher on the writer. It should be called as
// part of initialization.
func (w *Writer) WithStateHandler(m StatePusher) *Writer {
	w.stateManager = m
	return w
}

// SetAutoRetry flips the retry policy. The flag is read fresh before every
// resubmission, so disabling it stops in-flight retry sequences at their
// next reschedule point.
func (w *Writer) SetAutoRetry(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&w.autoRetry, v)
}

func (w *Writer) autoRetryEnabled() bool {
	return atomic.LoadInt32(&w.autoRetry) != 0
}

// Stats returns the writer's internal counters.
func (w *Writer) Stats() *internal.Stats {
	return w.stats
}

// Record appends one serialized event to the buffer. It never fails:
// serialization already happened upstream, and submission failures are not
// surfaced to producers.
func (w *Writer) Record(p []byte) {
	cmd := cmdPool.Get().(*writerCmd)
	cmd.kind = cmdMsg
	cmd.data = p

	w.doCommand(cmd)
	cmdPool.Put(cmd)
}

// Flush captures the buffered events as a batch and submits it, returning
// after the first submission attempt settles. Retries, if any, continue in
// the background. Flushing an empty buffer is a no-op.
func (w *Writer) Flush() error {
	res := w.doCommand(cachedFlushCmd)
	if res.doneC == nil {
		return res.err
	}
	return <-res.doneC
}

// Close flushes any remaining events and stops the writer.
func (w *Writer) Close() error {
	internal.Debugf(w.conf, "closing writer")
	res := w.doCommand(cachedCloseCmd)
	doneC := res.doneC
	w.stop()
	if doneC != nil {
		return <-doneC
	}
	return res.err
}

func (w *Writer) doCommand(cmd *writerCmd) *writerRes {
	w.inC <- cmd

	res := <-w.resC
	return res
}

func (w *Writer) stopTimer() {
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timerStarted = false
}

func (w *Writer) resetTimer(interval time.Duration) {
	w.stopTimer()
	w.timer.Reset(interval)
	w.timerStarted = true
}

func (w *Writer) loop() {
	for {
		select {
		case <-w.stopC:
			internal.Debugf(w.conf, "<-stopC")
			return

		case cmd := <-w.inC:
			internal.Debugf(w.conf, "inC <- %s", cmd.kind)
			if cmd == nil { // channel closed
				return
			}

			var doneC chan error
			var err error
			switch cmd.kind {
			case cmdMsg:
				w.handleMsg(cmd.data)
			case cmdFlush:
				doneC = w.handleFlush()
			case cmdClose:
				doneC = w.handleClose()
			default:
				log.Panicf("invalid command type: %v", cmd.kind)
			}

			w.resC <- cmd.res.vals(err, doneC)

		case <-w.timer.C:
			internal.Debugf(w.conf, "<-timer.C %s", w.state)
			w.timerStarted = false
			w.handleFlush()
		}
	}
}

func (w *Writer) handleMsg(p []byte) {
	w.buf.Append(p)
	w.stats.Incr("total_events")
	w.state = stateAccumulating

	if w.buf.Len() >= w.conf.MaxBufferSize {
		w.handleFlush()
		return
	}

	// debounce: every event pushes the automatic flush deadline forward
	if w.conf.ThrottleInterval > 0 {
		w.resetTimer(w.conf.ThrottleInterval)
	} else {
		w.handleFlush()
	}
}

// handleFlush snapshots the buffer into a batch and resets it before the
// submission starts, so events recorded while the batch is in flight start
// the next batch. The returned channel settles after the first submission
// attempt; it is nil when the buffer was empty.
func (w *Writer) handleFlush() chan error {
	w.stopTimer()
	if w.buf.Empty() {
		return nil
	}

	w.state = stateFlushing
	batch := w.buf.Copy()
	w.buf.Reset()
	w.state = stateIdle
	w.stats.Incr("total_flushes")

	id := uuid.New().String()
	doneC := make(chan error, 1)
	go w.submit(id, batch, doneC)
	return doneC
}

func (w *Writer) handleClose() chan error {
	doneC := w.handleFlush()
	w.state = stateClosed
	return doneC
}

// submit runs detached from the writer loop. The payload is rendered once
// so every retry resends identical bytes.
func (w *Writer) submit(id string, batch *protocol.Batch, doneC chan<- error) {
	body := batch.Bytes()

	err := w.poster.Post(body)
	doneC <- err
	w.settle(id, batch, body, err)
}

// settle applies the retry policy to a settled submission attempt. Failed
// batches are resubmitted at a constant interval while retry is enabled;
// there is no attempt cap. Disabling retry drops the batch at the next
// reschedule point.
func (w *Writer) settle(id string, batch *protocol.Batch, body []byte, err error) {
	for {
		if err == nil {
			w.stats.Incr("total_batches")
			w.stats.Add("total_bytes_written", int64(len(body)))
			w.pushState(id, nil, nil)
			return
		}

		w.stats.Incr("flush_errors")
		internal.Debugf(w.conf, "batch %s failed: %+v", id, err)

		if !w.autoRetryEnabled() {
			w.stats.Incr("dropped_batches")
			w.stats.Add("dropped_events", int64(batch.Len()))
			w.pushState(id, err, batch)
			return
		}

		timer := time.NewTimer(w.conf.RetryInterval)
		<-timer.C
		w.stats.Incr("total_retries")
		err = w.poster.Post(body)
	}
}

func (w *Writer) pushState(id string, err error, batch *protocol.Batch) {
	if w.stateManager == nil {
		return
	}
	internal.LogError(w.stateManager.Push(id, err, batch))
}

func (w *Writer) stop() {
	w.stopC <- struct{}{}
}

package client

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffrom/heclog/config"
	"github.com/jeffrom/heclog/internal"
)

type mockPoster struct {
	mu       sync.Mutex
	bodies   [][]byte
	failures int
	blockC   chan struct{}
	startC   chan struct{}
	postC    chan []byte
}

func newMockPoster() *mockPoster {
	return &mockPoster{
		postC: make(chan []byte, 100),
	}
}

func (p *mockPoster) Post(body []byte) error {
	if p.startC != nil {
		p.startC <- struct{}{}
	}
	if p.blockC != nil {
		<-p.blockC
	}

	p.mu.Lock()
	cp := internal.CopyBytes(body)
	p.bodies = append(p.bodies, cp)
	fail := p.failures > 0
	if fail {
		p.failures--
	}
	p.mu.Unlock()

	p.postC <- cp
	if fail {
		return errors.New("mock transport failure")
	}
	return nil
}

func (p *mockPoster) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bodies)
}

func waitForPost(t *testing.T, p *mockPoster) []byte {
	t.Helper()
	select {
	case body := <-p.postC:
		return body
	case <-time.After(2 * time.Second):
		t.Fatal("expected a submission but didn't get one")
	}
	return nil
}

func expectNoPost(t *testing.T, p *mockPoster, d time.Duration) {
	t.Helper()
	select {
	case body := <-p.postC:
		t.Fatalf("expected no submission but got: %q", body)
	case <-time.After(d):
	}
}

func newTestWriter(conf *config.Config) (*Writer, *mockPoster) {
	p := newMockPoster()
	return NewWriter(conf, p), p
}

func TestWriterThresholdFlush(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.MaxBufferSize = 3
	conf.ThrottleInterval = time.Hour
	w, p := newTestWriter(conf)
	defer w.Close()

	w.Record([]byte(`{"n":1}`))
	w.Record([]byte(`{"n":2}`))
	expectNoPost(t, p, 50*time.Millisecond)

	w.Record([]byte(`{"n":3}`))
	body := waitForPost(t, p)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n{\"n\":3}", string(body))
}

func TestWriterExampleScenario(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.MaxBufferSize = 3
	conf.ThrottleInterval = 2 * time.Second
	w, p := newTestWriter(conf)
	defer w.Close()

	for _, msg := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`, `{"n":4}`, `{"n":5}`, `{"n":6}`} {
		w.Record([]byte(msg))
	}

	first := waitForPost(t, p)
	second := waitForPost(t, p)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n{\"n\":3}", string(first))
	assert.Equal(t, "{\"n\":4}\n{\"n\":5}\n{\"n\":6}", string(second))
}

func TestWriterFlushEmpty(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	w, p := newTestWriter(conf)
	defer w.Close()

	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush())
	assert.Equal(t, 0, p.count())
}

func TestWriterTimerFlush(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.ThrottleInterval = 50 * time.Millisecond
	w, p := newTestWriter(conf)
	defer w.Close()

	w.Record([]byte(`{"n":1}`))
	body := waitForPost(t, p)
	assert.Equal(t, `{"n":1}`, string(body))
}

func TestWriterDebounce(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.MaxBufferSize = 100
	conf.ThrottleInterval = 300 * time.Millisecond
	w, p := newTestWriter(conf)
	defer w.Close()

	w.Record([]byte(`{"n":1}`))
	time.Sleep(200 * time.Millisecond)
	// this should push the flush deadline forward
	w.Record([]byte(`{"n":2}`))
	expectNoPost(t, p, 200*time.Millisecond)

	body := waitForPost(t, p)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}", string(body))
}

func TestWriterExplicitFlush(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.MaxBufferSize = 100
	conf.ThrottleInterval = time.Hour
	w, p := newTestWriter(conf)
	defer w.Close()

	w.Record([]byte(`{"n":1}`))
	w.Record([]byte(`{"n":2}`))
	require.NoError(t, w.Flush())

	body := waitForPost(t, p)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}", string(body))
}

func TestWriterRetryResubmitsIdenticalBatch(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.ThrottleInterval = time.Hour
	conf.AutoRetry = true
	conf.RetryInterval = 20 * time.Millisecond
	w, p := newTestWriter(conf)
	defer w.Close()
	p.failures = 1

	w.Record([]byte(`{"n":1}`))
	err := w.Flush()
	require.Error(t, err, "flush should surface the first attempt's failure")

	first := waitForPost(t, p)
	second := waitForPost(t, p)
	assert.Equal(t, first, second)

	// the successful resubmission terminates the sequence
	expectNoPost(t, p, 100*time.Millisecond)
	assert.Equal(t, int64(1), w.Stats().Get("total_retries"))
	assert.Equal(t, int64(1), w.Stats().Get("total_batches"))
}

func TestWriterRetryDisabledDropsBatch(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.ThrottleInterval = time.Hour
	conf.AutoRetry = false
	w, p := newTestWriter(conf)
	defer w.Close()
	m := NewMockStatePusher()
	w.WithStateHandler(m)
	p.failures = 1

	w.Record([]byte(`{"n":1}`))
	require.Error(t, w.Flush())

	waitForPost(t, p)
	expectNoPost(t, p, 100*time.Millisecond)
	assert.Equal(t, int64(1), w.Stats().Get("dropped_batches"))

	id, perr, batch, ok := m.Next()
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Error(t, perr)
	require.NotNil(t, batch)
	assert.Equal(t, `{"n":1}`, string(batch.Bytes()))
}

func TestWriterAccumulatesDuringFlush(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.MaxBufferSize = 100
	conf.ThrottleInterval = time.Hour
	p := newMockPoster()
	p.blockC = make(chan struct{})
	p.startC = make(chan struct{}, 100)
	w := NewWriter(conf, p)
	defer w.Close()

	w.Record([]byte(`{"n":1}`))
	flushed := make(chan error, 1)
	go func() {
		flushed <- w.Flush()
	}()

	// the first batch is in flight; the buffer should accept new events
	<-p.startC
	w.Record([]byte(`{"n":2}`))
	w.Record([]byte(`{"n":3}`))

	close(p.blockC)
	require.NoError(t, <-flushed)
	first := waitForPost(t, p)
	assert.Equal(t, `{"n":1}`, string(first))

	require.NoError(t, w.Flush())
	second := waitForPost(t, p)
	assert.Equal(t, "{\"n\":2}\n{\"n\":3}", string(second))
}

func TestWriterCloseFlushes(t *testing.T) {
	conf := config.DefaultTestConfig(testing.Verbose())
	conf.ThrottleInterval = time.Hour
	w, p := newTestWriter(conf)

	w.Record([]byte(`{"n":1}`))
	require.NoError(t, w.Close())

	body := waitForPost(t, p)
	assert.Equal(t, `{"n":1}`, string(body))
}

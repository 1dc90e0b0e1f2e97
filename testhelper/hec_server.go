package testhelper

import (
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockCollector is an HTTP stand-in for an event collector. Expectations
// are queued with Expect; each one receives the raw request body and
// returns the response status. Without a matching expectation the
// collector answers with the Respond callback, or 200.
type MockCollector struct {
	srv     *httptest.Server
	in      chan func(body []byte) int
	respond func(body []byte) int
	mu      sync.Mutex
	bodies  [][]byte
	auths   []string
}

// NewMockCollector returns a new, started MockCollector
func NewMockCollector() *MockCollector {
	c := &MockCollector{
		in: make(chan func(body []byte) int, 100),
	}
	c.srv = httptest.NewServer(http.HandlerFunc(c.handle))
	return c
}

func (c *MockCollector) handle(w http.ResponseWriter, req *http.Request) {
	body, err := ioutil.ReadAll(req.Body)
	if err != nil {
		log.Panicf("expected request but read failed: %+v", err)
	}

	c.mu.Lock()
	c.bodies = append(c.bodies, body)
	c.auths = append(c.auths, req.Header.Get("Authorization"))
	respond := c.respond
	c.mu.Unlock()

	status := http.StatusOK
	select {
	case cb := <-c.in:
		status = cb(body)
	default:
		if respond != nil {
			status = respond(body)
		}
	}

	log.Printf("%s: read %d bytes, responding %d", req.RemoteAddr, len(body), status)
	w.WriteHeader(status)
}

// Expect queues an expectation for one request. The callback receives the
// request body and returns the response status.
func (c *MockCollector) Expect(cb func(body []byte) int) {
	log.Printf("added request expectation")
	c.in <- cb
}

// Respond sets a fallback responder used when no expectation is queued.
func (c *MockCollector) Respond(cb func(body []byte) int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.respond = cb
}

// URL returns the collector endpoint
func (c *MockCollector) URL() string {
	return c.srv.URL
}

// Bodies returns the raw request bodies received so far
func (c *MockCollector) Bodies() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.bodies))
	copy(out, c.bodies)
	return out
}

// Auths returns the Authorization header values received so far
func (c *MockCollector) Auths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.auths))
	copy(out, c.auths)
	return out
}

// Close shuts the collector down
func (c *MockCollector) Close() {
	c.srv.Close()
}

package client

import (
	"bytes"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jeffrom/heclog/config"
	"github.com/jeffrom/heclog/internal"
)

// Poster is the transport boundary. It submits one batch payload to the
// collector and reports whether the attempt settled successfully.
type Poster interface {
	Post(body []byte) error
}

// Client submits batch payloads to the configured collector over HTTP.
type Client struct {
	conf *config.Config
	http *http.Client
}

// New returns a new instance of Client
func New(conf *config.Config) *Client {
	return &Client{
		conf: conf,
		http: &http.Client{
			Timeout: conf.Timeout,
		},
	}
}

// Post implements the Poster interface. Any non-2xx response is a failure;
// the engine doesn't distinguish failure causes.
func (c *Client) Post(body []byte) error {
	req, err := http.NewRequest(http.MethodPost, c.conf.Addr, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Splunk "+c.conf.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, rerr := ioutil.ReadAll(resp.Body)
		internal.IgnoreError(rerr)
		return errors.Errorf("collector returned status %d: %s", resp.StatusCode, b)
	}

	internal.Debugf(c.conf, "wrote %d bytes to %s", len(body), c.conf.Addr)
	return nil
}

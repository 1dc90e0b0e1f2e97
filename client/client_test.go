package client

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffrom/heclog/testhelper"
)

func TestClientPost(t *testing.T) {
	srv := testhelper.NewMockCollector()
	defer srv.Close()
	conf := testhelper.DefaultTestConfig(srv.URL(), testing.Verbose())
	conf.Token = "abc-123"
	c := New(conf)

	require.NoError(t, c.Post([]byte(`{"event":{"logType":"info"}}`)))

	bodies := srv.Bodies()
	require.Len(t, bodies, 1)
	assert.Equal(t, `{"event":{"logType":"info"}}`, string(bodies[0]))
	assert.Equal(t, []string{"Splunk abc-123"}, srv.Auths())
}

func TestClientPostErrorStatus(t *testing.T) {
	srv := testhelper.NewMockCollector()
	defer srv.Close()
	conf := testhelper.DefaultTestConfig(srv.URL(), testing.Verbose())
	c := New(conf)

	srv.Expect(func(body []byte) int {
		return http.StatusServiceUnavailable
	})

	err := c.Post([]byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClientPostConnectionFailure(t *testing.T) {
	srv := testhelper.NewMockCollector()
	conf := testhelper.DefaultTestConfig(srv.URL(), testing.Verbose())
	srv.Close()
	c := New(conf)

	assert.Error(t, c.Post([]byte(`{}`)))
}

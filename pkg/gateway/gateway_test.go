package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroker(t *testing.T, status int, hits *atomic.Int32, got chan<- PublishRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, publishPath, r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var req PublishRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if got != nil {
			got <- req
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"id":"msg-1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":"INTERNAL_ERROR","message":"boom"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewGateway(t *testing.T) {
	_, err := NewGateway(nil)
	assert.ErrorIs(t, err, ErrNoInstance)

	_, err = NewGateway(&Config{URLs: []string{" "}})
	assert.ErrorIs(t, err, ErrNoInstance)

	g, err := NewGateway(&Config{
		URLs:       []string{"http://a/", "http://b"},
		APIKeys:    []string{"k"},
		APISecrets: []string{"s"},
	})
	require.NoError(t, err)
	instances := g.GetInstances()
	require.Len(t, instances, 2)
	assert.Equal(t, "http://a", instances[0].URL)
	assert.Equal(t, "k", instances[1].APIKey)
	assert.Equal(t, 2, g.GetHealthyInstanceCount())
}

func TestPublish(t *testing.T) {
	var hits atomic.Int32
	got := make(chan PublishRequest, 1)
	srv := newBroker(t, http.StatusOK, &hits, got)

	g, err := NewGateway(&Config{
		URLs:       []string{srv.URL},
		APIKeys:    []string{"key"},
		APISecrets: []string{"secret"},
		Timeout:    time.Second,
		MaxRetries: 3,
	})
	require.NoError(t, err)

	require.NoError(t, g.Publish(context.Background(), "bt_client/T1", 1, []byte(`{"id":"c1"}`)))

	req := <-got
	assert.Equal(t, "bt_client/T1", req.Topic)
	assert.Equal(t, 1, req.QoS)
	assert.Equal(t, `{"id":"c1"}`, req.Payload)
	assert.Equal(t, "plain", req.PayloadEncoding)
	assert.Equal(t, int32(1), hits.Load())
	assert.NoError(t, g.HealthCheck(context.Background()))
}

func TestPublishFailsOver(t *testing.T) {
	var badHits, goodHits atomic.Int32
	bad := newBroker(t, http.StatusInternalServerError, &badHits, nil)
	good := newBroker(t, http.StatusOK, &goodHits, nil)

	g, err := NewGateway(&Config{
		URLs:       []string{bad.URL, good.URL},
		APIKeys:    []string{"key"},
		APISecrets: []string{"secret"},
		Timeout:    time.Second,
		MaxRetries: 3,
	})
	require.NoError(t, err)

	require.NoError(t, g.Publish(context.Background(), "bt_client/T1", 1, []byte("x")))
	assert.Equal(t, int32(1), badHits.Load())
	assert.Equal(t, int32(1), goodHits.Load())

	// 成功过的实例负载更高，下一次先尝试失败过的实例
	instances := g.GetInstances()
	assert.Equal(t, 1, instances[0].ErrorCount)
	assert.Error(t, instances[0].LastErr)
}

func TestPublishAllFail(t *testing.T) {
	var hits atomic.Int32
	bad := newBroker(t, http.StatusInternalServerError, &hits, nil)

	g, err := NewGateway(&Config{
		URLs:       []string{bad.URL},
		APIKeys:    []string{"key"},
		APISecrets: []string{"secret"},
		Timeout:    time.Second,
		MaxRetries: 3,
	})
	require.NoError(t, err)

	err = g.Publish(context.Background(), "bt_client/T1", 1, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Equal(t, int32(3), hits.Load())

	assert.Equal(t, 0, g.GetHealthyInstanceCount())
	assert.Error(t, g.HealthCheck(context.Background()))
}

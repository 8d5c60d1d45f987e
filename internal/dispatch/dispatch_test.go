package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/dispatch"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
)

type stubGateway struct {
	err   error
	calls int
	block bool
}

func (g *stubGateway) Send(ctx context.Context, text, mediaURL string) error {
	g.calls++
	if g.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return g.err
}

func TestSend_Success(t *testing.T) {
	gw := &stubGateway{}
	d := dispatch.New(gw, logging.NewNop(), time.Second, 100)

	err := d.Send(context.Background(), "alert text", "")
	require.NoError(t, err)
	assert.Equal(t, 1, gw.calls)
}

func TestSend_GatewayErrorBecomesDispatchError(t *testing.T) {
	gw := &stubGateway{err: errors.New("channel down")}
	d := dispatch.New(gw, logging.NewNop(), time.Second, 100)

	err := d.Send(context.Background(), "alert text", "")
	var de *dispatch.DispatchError
	require.ErrorAs(t, err, &de)
	assert.ErrorContains(t, de, "channel down")
}

func TestSend_NilGatewayIsNoop(t *testing.T) {
	d := dispatch.New(nil, logging.NewNop(), time.Second, 100)
	assert.NoError(t, d.Send(context.Background(), "alert text", ""))
}

func TestSend_TimeoutEnforced(t *testing.T) {
	gw := &stubGateway{block: true}
	d := dispatch.New(gw, logging.NewNop(), 50*time.Millisecond, 100)

	start := time.Now()
	err := d.Send(context.Background(), "alert text", "")
	var de *dispatch.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWebhookGateway_PostsPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := dispatch.NewWebhookGateway(srv.URL)
	err := gw.Send(context.Background(), "GarduA exceeds 80% kapasitas (85.50%)", "https://img.example/x.png")
	require.NoError(t, err)
	assert.Equal(t, "GarduA exceeds 80% kapasitas (85.50%)", got["text"])
	assert.Equal(t, "https://img.example/x.png", got["media_url"])
}

func TestWebhookGateway_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := dispatch.NewWebhookGateway(srv.URL)
	err := gw.Send(context.Background(), "alert text", "")
	assert.ErrorContains(t, err, "status 502")
}

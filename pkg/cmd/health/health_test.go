package health

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatResponseOK(t *testing.T) {
	assert.Equal(t, "ok", formatResponse(healthResponse{OK: true}))
}

func TestFormatResponseStale(t *testing.T) {
	line := formatResponse(healthResponse{OK: false, Stale: []string{"Job", "Pod"}})
	assert.Contains(t, line, "Job")
	assert.Contains(t, line, "Pod")
}

func TestPollDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"stale_watchers":["ConfigMap"]}`))
	}))
	defer server.Close()

	resp, err := poll(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, []string{"ConfigMap"}, resp.Stale)
}

func TestTailPrintsOnlyOnChange(t *testing.T) {
	okNow := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if okNow {
			_, _ = w.Write([]byte(`{"ok":true}`))
		} else {
			_, _ = w.Write([]byte(`{"ok":false,"stale_watchers":["Job"]}`))
		}
	}))
	defer server.Close()

	var buf bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		okNow = true
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := tail(ctx, &buf, server.URL, 5*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "stale watchers")
	assert.Equal(t, "ok", lines[1])
}

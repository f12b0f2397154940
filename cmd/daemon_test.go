package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theirongolddev/aforos/internal/daemon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"daemon", "--detach", "--addr", "127.0.0.1:9000", "--detach=true"})
	assert.Equal(t, []string{"daemon", "--addr", "127.0.0.1:9000"}, got)
}

func TestPrintDaemonStatusLoaded(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st := daemon.Status{
		PID:             4242,
		StartedAt:       now.Add(-90 * time.Minute),
		LastPollAt:      now.Add(-time.Minute),
		LastReloadAt:    now.Add(-time.Hour),
		PollIntervalSec: 30,
		PollCount:       180,
		ReloadCount:     2,
		Source:          "/data/aforos",
		Encoding:        "latin1",
		Loaded:          true,
		Dataset: daemon.Snapshot{
			Files:   2,
			Records: 1234,
			Years:   []string{"2020", "2021"},
			Sources: []string{"/data/aforos/2020.csv", "/data/aforos/2021.csv"},
			First:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			Last:    time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC),
		},
		LastError: "read 2022.csv: unknown month",
	}

	var buf bytes.Buffer
	printDaemonStatus(&buf, "127.0.0.1:8788", st, now)
	out := buf.String()

	assert.Contains(t, out, "pid 4242 at http://127.0.0.1:8788, up 1h 30m")
	assert.Contains(t, out, "Source: /data/aforos (latin1), polled every 30s")
	assert.Contains(t, out, "(180 polls)")
	assert.Contains(t, out, "Records: 1,234 across 2 files")
	assert.Contains(t, out, "Years: 2020, 2021")
	assert.Contains(t, out, "Span: 2020-01 to 2021-12")
	assert.Contains(t, out, "/data/aforos/2021.csv")
	assert.Contains(t, out, "Reloads: 2")
	assert.Contains(t, out, "Last error: read 2022.csv: unknown month")
	assert.NotContains(t, out, "subscribers")
}

func TestPrintDaemonStatusNotLoaded(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	printDaemonStatus(&buf, "127.0.0.1:8788", daemon.Status{PID: 1, StartedAt: now}, now)
	out := buf.String()

	assert.Contains(t, out, "Last poll: pending")
	assert.Contains(t, out, "Dataset: not loaded")
	assert.NotContains(t, out, "Records:")
	assert.NotContains(t, out, "Last error")
}

func TestEnsureAddrFree(t *testing.T) {
	running := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(daemon.Status{PID: 99})
	}))
	defer running.Close()

	err := ensureAddrFree(context.Background(), daemon.NewClient(running.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
	assert.Contains(t, err.Error(), "pid 99")

	other := httptest.NewServer(http.NotFoundHandler())
	defer other.Close()
	err = ensureAddrFree(context.Background(), daemon.NewClient(other.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use")

	closed := httptest.NewServer(http.NotFoundHandler())
	addr := closed.URL
	closed.Close()
	assert.NoError(t, ensureAddrFree(context.Background(), daemon.NewClient(addr)))
}

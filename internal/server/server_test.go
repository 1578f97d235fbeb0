package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/formrepl/internal/engine"
	"github.com/leapstack-labs/formrepl/internal/repl"
	"github.com/leapstack-labs/formrepl/internal/testutil"
)

type stubRunner struct{}

func (stubRunner) Invoke(_ context.Context, unit string) (*engine.Result, error) {
	if strings.Contains(unit, "bad") {
		return nil, &engine.ExecutionError{Status: 1, Stderr: "Line 1 --> Illegal statement\n", Stdout: "   E ="}
	}
	return &engine.Result{DisplayText: "   E = 1;", Duration: 25 * time.Millisecond}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	sess := repl.NewSession(stubRunner{}, repl.Config{Sentinel: ".end", Logger: logger})
	srv := New(Config{
		Session:    sess,
		Version:    "1.0.0",
		EnginePath: "/usr/bin/form",
		Sentinel:   ".end",
		Timeout:    time.Minute,
		Logger:     logger,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func execute(t *testing.T, ts *httptest.Server, input string) (int, ExecuteResponse) {
	t.Helper()
	body, err := json.Marshal(ExecuteRequest{Input: input})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/execute", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out ExecuteResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestExecute(t *testing.T) {
	ts := newTestServer(t)

	status, out := execute(t, ts, "Local E = 1;\nPrint;\n")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Success)
	assert.Equal(t, "   E = 1;", out.Output)
	assert.Equal(t, int64(25), out.DurationMS)
	assert.Equal(t, 1, out.SessionNumber)
	assert.Empty(t, out.Error)

	status, out = execute(t, ts, "bad;")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, out.Success)
	assert.Equal(t, 2, out.SessionNumber)
	assert.Equal(t, "Line 1 --> Illegal statement", out.Error)
	assert.Equal(t, "   E =", out.Output)
}

func TestExecute_BadRequest(t *testing.T) {
	ts := newTestServer(t)

	status, _ := execute(t, ts, "   \n  ")
	assert.Equal(t, http.StatusBadRequest, status)

	resp, err := http.Post(ts.URL+"/api/execute", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t)
	execute(t, ts, "Local E = 1;")
	execute(t, ts, "bad;")
	execute(t, ts, "Local F = 2;")

	var all []HistoryEntry
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/history", &all))
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].SessionNumber)
	assert.Equal(t, 1, all[2].SessionNumber)
	assert.False(t, all[1].Success)
	assert.Equal(t, "exit status 1", all[1].Error)

	var two []HistoryEntry
	getJSON(t, ts.URL+"/api/history?count=2", &two)
	require.Len(t, two, 2)
	assert.Equal(t, "Local F = 2;", two[0].Input)

	var none []HistoryEntry
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/history?count=0", &none))
	require.NotNil(t, none)
	assert.Empty(t, none)

	resp, err := http.Get(ts.URL + "/api/history?count=x")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearHistory(t *testing.T) {
	ts := newTestServer(t)
	execute(t, ts, "Local E = 1;")
	execute(t, ts, "Local F = 2;")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/history", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var all []HistoryEntry
	getJSON(t, ts.URL+"/api/history", &all)
	assert.Empty(t, all)

	_, out := execute(t, ts, "Local G = 3;")
	assert.Equal(t, 1, out.SessionNumber)
}

func TestInfo(t *testing.T) {
	ts := newTestServer(t)
	execute(t, ts, "Local E = 1;")

	var info Info
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/info", &info))
	assert.Equal(t, Info{
		Version:    "1.0.0",
		FormPath:   "/usr/bin/form",
		Sentinel:   ".end",
		TimeoutMS:  60000,
		NextNumber: 2,
		Entries:    1,
	}, info)
}

func TestServeListener_Shutdown(t *testing.T) {
	sess := repl.NewSession(stubRunner{}, repl.Config{Sentinel: ".end"})
	srv := New(Config{Session: sess, Logger: testutil.NewTestLogger(t)})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	var info Info
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/info")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return json.NewDecoder(resp.Body).Decode(&info) == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, info.NextNumber)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

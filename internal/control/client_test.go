package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"ssvep-engine/internal/timesync"
)

type recordedRequest struct {
	path  string
	query map[string]string
}

func newRecordingServer(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{path: r.URL.Path, query: map[string]string{}}
		for key := range r.URL.Query() {
			rec.query[key] = r.URL.Query().Get(key)
		}
		mu.Lock()
		requests = append(requests, rec)
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestAppendCueSequenceQuery(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, `{}`)
	client := NewClient(Config{BaseURL: srv.URL})

	res := client.AppendCueSequence(context.Background(), "Foo")
	if !res.OK() {
		t.Fatalf("append failed: status=%d err=%v", res.Status, res.Err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	got := (*requests)[0]
	if got.path != "/appendCueSequence.json" {
		t.Fatalf("unexpected path %q", got.path)
	}
	if got.query["text"] != "Foo" {
		t.Fatalf("expected text=Foo, got %q", got.query["text"])
	}
}

func TestSetLayoutColumnsQuery(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, ``)
	client := NewClient(Config{BaseURL: srv.URL})

	res := client.SetLayoutColumns(context.Background(), 5)
	if !res.OK() {
		t.Fatalf("columns command failed: status=%d err=%v", res.Status, res.Err)
	}
	got := (*requests)[0]
	if got.path != "/ssvepLayoutColumns" {
		t.Fatalf("unexpected path %q", got.path)
	}
	if got.query["columns"] != "5" {
		t.Fatalf("expected columns=5, got %q", got.query["columns"])
	}
}

func TestSetLayoutColumnsRejectsInvalid(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, ``)
	client := NewClient(Config{BaseURL: srv.URL})

	for _, columns := range []int{0, 3, 7, -5} {
		res := client.SetLayoutColumns(context.Background(), columns)
		if res.Err != ErrInvalidColumns {
			t.Fatalf("columns %d: expected ErrInvalidColumns, got %v", columns, res.Err)
		}
	}
	if len(*requests) != 0 {
		t.Fatalf("invalid widths must not reach the gateway, saw %d requests", len(*requests))
	}
}

func TestPassedSeconds(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusOK, `{"timestamp": 1700000000.5, "passed": 12.25}`)
	client := NewClient(Config{BaseURL: srv.URL})

	reading, err := client.PassedSeconds(context.Background())
	if err != nil {
		t.Fatalf("passed seconds: %v", err)
	}
	if reading.Passed != 12.25 || reading.Timestamp != 1700000000.5 {
		t.Fatalf("unexpected reading %+v", reading)
	}
}

func TestPassedSecondsNonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		srv, _ := newRecordingServer(t, status, `{"detail": "Failed checkoutPassedSeconds.json"}`)
		client := NewClient(Config{BaseURL: srv.URL})
		if _, err := client.PassedSeconds(context.Background()); err == nil {
			t.Fatalf("status %d: expected error", status)
		}
	}
}

func TestPassedSecondsUnreachable(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.PassedSeconds(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestConsoleAppendCueUpdatesList(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusOK, `{}`)
	console := NewConsole(ConsoleConfig{Client: NewClient(Config{BaseURL: srv.URL})})

	if res := console.AppendCue(context.Background(), "Foo"); !res.OK() {
		t.Fatalf("append failed: %+v", res)
	}
	cues := console.Cues()
	if len(cues) != 1 || cues[0] != "Foo" {
		t.Fatalf("unexpected cue list %v", cues)
	}
}

func TestConsoleAppendCueFailureLeavesList(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusNotFound, `{"detail": "Failed appendCueSequence.json"}`)
	console := NewConsole(ConsoleConfig{Client: NewClient(Config{BaseURL: srv.URL})})

	if res := console.AppendCue(context.Background(), "Foo"); res.OK() {
		t.Fatalf("expected failure result")
	}
	if len(console.Cues()) != 0 {
		t.Fatalf("failed append must not touch the cue list")
	}
}

func TestConsoleRunStopsOnResyncFailure(t *testing.T) {
	// Start succeeds, the first passed-seconds query fails: the run ends
	// with the failure readout and no snapshot left behind.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/checkoutPassedSeconds.json" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var polled []string
	console := NewConsole(ConsoleConfig{
		Client: NewClient(Config{BaseURL: srv.URL}),
		RenderPolled: func(s string) {
			mu.Lock()
			polled = append(polled, s)
			mu.Unlock()
		},
	})

	if err := console.Run(context.Background()); err == nil {
		t.Fatalf("expected run to end with the resync failure")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(polled) == 0 || polled[len(polled)-1] != timesync.ResyncFailureText {
		t.Fatalf("expected failure readout, got %v", polled)
	}
	if _, ok := console.Tracker().EstimateNow(); ok {
		t.Fatalf("tracker must be reset after a failed resync")
	}
}

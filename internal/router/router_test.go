package router

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/objsearch/internal/catalog"
	"github.com/dshills/objsearch/internal/host"
	"github.com/dshills/objsearch/internal/host/timeline"
	"github.com/dshills/objsearch/internal/placement"
	"github.com/dshills/objsearch/internal/search"
)

var testCandidates = []catalog.Candidate{
	{Identifier: "Fire_A", Label: "Fire Effect Alpha"},
	{Identifier: "Blur", Label: "Gaussian Blur"},
	{Identifier: "Glow", Label: "Soft Glow"},
}

type fixture struct {
	router   *Router
	timeline *timeline.Timeline
}

func newFixture(t *testing.T, opts ...timeline.Option) *fixture {
	t.Helper()
	tl := timeline.New(opts...)
	w := host.NewWorker(tl, 4)
	w.Start(context.Background())
	t.Cleanup(w.Close)

	r, err := New(Options{
		Searcher: search.New(catalog.New(testCandidates), search.Options{}),
		Inserter: placement.NewInserter(w, placement.NewPlanner(placement.DefaultOptions())),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{router: r, timeline: tl}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New without searcher should fail")
	}
	if _, err := New(Options{Searcher: search.New(nil, search.Options{})}); err == nil {
		t.Error("New without inserter should fail")
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	resp := f.router.Handle(context.Background(), []byte(`{"type":"search","data":"fira"}`))

	if got := gjson.GetBytes(resp, "type").String(); got != KindSearchResult {
		t.Fatalf("type = %q, resp = %s", got, resp)
	}
	cands := gjson.GetBytes(resp, "data.candidates").Array()
	if len(cands) != 1 || cands[0].Get("identifier").String() != "Fire_A" {
		t.Errorf("candidates = %s", gjson.GetBytes(resp, "data.candidates").Raw)
	}
	if cands[0].Get("label").String() != "Fire Effect Alpha" {
		t.Errorf("label = %s", cands[0].Get("label"))
	}
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	f := newFixture(t)
	resp := f.router.Handle(context.Background(), []byte(`{"type":"search","data":"  "}`))
	ids := gjson.GetBytes(resp, "data.candidates.#.identifier").Array()
	if len(ids) != 3 || ids[0].String() != "Fire_A" || ids[2].String() != "Glow" {
		t.Errorf("identifiers = %v", ids)
	}
}

func TestSearchNoMatchesIsEmptyArray(t *testing.T) {
	f := newFixture(t)
	resp := f.router.Handle(context.Background(), []byte(`{"type":"search","data":"zzzz"}`))
	if got := gjson.GetBytes(resp, "data.candidates").Raw; got != "[]" {
		t.Errorf("candidates = %s, want []", got)
	}
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	resp := f.router.Handle(context.Background(), []byte(`{"type":"select","data":"Fire_A","id":7}`))

	if got := gjson.GetBytes(resp, "type").String(); got != KindSelectResult {
		t.Fatalf("resp = %s", resp)
	}
	if gjson.GetBytes(resp, "data.identifier").String() != "Fire_A" ||
		gjson.GetBytes(resp, "data.layer").Int() != 0 ||
		gjson.GetBytes(resp, "data.attempts").Int() != 1 {
		t.Errorf("resp = %s", resp)
	}
	if gjson.GetBytes(resp, "id").Int() != 7 {
		t.Errorf("id not echoed: %s", resp)
	}
	if n := len(f.timeline.Objects()); n != 1 {
		t.Errorf("objects = %d, want 1", n)
	}
	if s := f.router.Metrics().Snapshot(); s.Placed != 1 {
		t.Errorf("placed = %d", s.Placed)
	}
}

func TestSelectFailure(t *testing.T) {
	f := newFixture(t, timeline.WithMaxLayers(1))
	ctx := context.Background()
	_ = f.router.Handle(ctx, []byte(`{"type":"select","data":"Blur"}`))
	resp := f.router.Handle(ctx, []byte(`{"type":"select","data":"Fire_A"}`))

	if got := gjson.GetBytes(resp, "type").String(); got != KindError {
		t.Fatalf("resp = %s", resp)
	}
	data := gjson.GetBytes(resp, "data")
	if data.Get("kind").String() != "insertion_failed" ||
		data.Get("identifier").String() != "Fire_A" ||
		data.Get("attempts").Int() != 10 ||
		!data.Get("attempts_exhausted").Bool() {
		t.Errorf("data = %s", data.Raw)
	}
	if !strings.Contains(data.Get("message").String(), "insertion failed") {
		t.Errorf("message = %q", data.Get("message").String())
	}
	s := f.router.Metrics().Snapshot()
	if s.Failed != 1 || s.AttemptsExhausted != 1 || s.Placed != 1 {
		t.Errorf("metrics = %+v", s)
	}
}

func TestMalformedMessages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{"type":`},
		{"not an object", `["search","x"]`},
		{"unknown kind", `{"type":"delete","data":"x"}`},
		{"reload is unsupported", `{"type":"reload","data":""}`},
		{"missing data", `{"type":"search"}`},
		{"wrong data type", `{"type":"search","data":5}`},
		{"extra field", `{"type":"search","data":"x","extra":true}`},
		{"empty select", `{"type":"select","data":""}`},
	}
	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.router.Dispatch(context.Background(), []byte(tt.raw))
			if !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("Dispatch error = %v, want ErrMalformedMessage", err)
			}
			if resp != nil {
				t.Errorf("response = %s, want none", resp)
			}
			if resp := f.router.Handle(context.Background(), []byte(tt.raw)); resp != nil {
				t.Errorf("Handle response = %s, want nil", resp)
			}
		})
	}
	if got := f.router.Metrics().Snapshot().Malformed; got != uint64(2*len(tests)) {
		t.Errorf("malformed = %d, want %d", got, 2*len(tests))
	}
	if n := len(f.timeline.Objects()); n != 0 {
		t.Errorf("malformed messages changed state: %d objects", n)
	}
}

func TestServe(t *testing.T) {
	f := newFixture(t)
	in := strings.NewReader(strings.Join([]string{
		`{"type":"search","data":"blur","id":"s1"}`,
		``,
		`not json`,
		`{"type":"select","data":"Blur","id":"p1"}`,
		`{"type":"select","data":"Glow","id":"p2"}`,
		`{"type":"search","data":"","id":"s2"}`,
	}, "\n"))
	var out bytes.Buffer

	if err := f.router.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d responses, want 4:\n%s", len(lines), out.String())
	}
	byID := map[string]gjson.Result{}
	var selectOrder []string
	for _, line := range lines {
		res := gjson.Parse(line)
		id := res.Get("id").String()
		byID[id] = res
		if res.Get("type").String() == KindSelectResult {
			selectOrder = append(selectOrder, id)
		}
	}
	if byID["s1"].Get("data.candidates.0.identifier").String() != "Blur" {
		t.Errorf("s1 = %s", byID["s1"].Raw)
	}
	if len(byID["s2"].Get("data.candidates").Array()) != 3 {
		t.Errorf("s2 = %s", byID["s2"].Raw)
	}
	if strings.Join(selectOrder, ",") != "p1,p2" {
		t.Errorf("select order = %v, want arrival order", selectOrder)
	}
	if byID["p2"].Get("data.layer").Int() != 1 {
		t.Errorf("second select should land on layer 1: %s", byID["p2"].Raw)
	}
}

// slowSearcher blocks until released, recording peak concurrency.
type slowSearcher struct {
	mu      sync.Mutex
	active  int
	peak    int
	release chan struct{}
}

func (s *slowSearcher) Search(string) []catalog.Candidate {
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()
	<-s.release
	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	return nil
}

type nopInserter struct{}

func (nopInserter) Insert(context.Context, string) placement.Outcome {
	return placement.Outcome{Status: placement.Placed, Attempts: 1}
}

func TestServeBoundsSearchConcurrency(t *testing.T) {
	s := &slowSearcher{release: make(chan struct{})}
	r, err := New(Options{Searcher: s, Inserter: nopInserter{}, Concurrency: 2})
	if err != nil {
		t.Fatal(err)
	}

	var lines []string
	for i := 0; i < 6; i++ {
		lines = append(lines, `{"type":"search","data":"x"}`)
	}
	done := make(chan error, 1)
	go func() {
		done <- r.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")), io.Discard)
	}()

	time.Sleep(50 * time.Millisecond)
	close(s.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if s.peak > 2 {
		t.Errorf("peak concurrent searches = %d, want <= 2", s.peak)
	}
	if got := r.Metrics().Snapshot().Searches; got != 6 {
		t.Errorf("searches = %d, want 6", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestServeWriteError(t *testing.T) {
	f := newFixture(t)
	err := f.router.Serve(context.Background(),
		strings.NewReader(`{"type":"select","data":"Blur"}`), failingWriter{})
	if err == nil || !strings.Contains(err.Error(), "pipe closed") {
		t.Errorf("Serve = %v, want write error", err)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordSearch(2 * time.Millisecond)
	m.RecordSearch(4 * time.Millisecond)
	m.RecordFailed(false)
	s := m.Snapshot()
	if s.Searches != 2 || s.AvgSearchLatency != 3*time.Millisecond || s.MaxSearchLatency != 4*time.Millisecond {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Failed != 1 || s.AttemptsExhausted != 0 {
		t.Errorf("snapshot = %+v", s)
	}
}

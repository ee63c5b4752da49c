package busybee

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type trafficRecorder struct {
	mu     sync.Mutex
	hits   map[string]int
	ids    map[string]int
	total  int
	noBody int
}

func newTrafficRecorder() *trafficRecorder {
	return &trafficRecorder{
		hits: make(map[string]int),
		ids:  make(map[string]int),
	}
}

func (tr *trafficRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if strings.HasPrefix(path, "/api/items/") {
		path = "/api/items/{id}"
	}
	tr.mu.Lock()
	tr.hits[r.Method+" "+path]++
	tr.ids[r.Header.Get(RequestIDHeader)]++
	tr.total++
	if r.Method == http.MethodPost && r.ContentLength <= 0 {
		tr.noBody++
	}
	tr.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (tr *trafficRecorder) snapshot() (total, routes, dupIDs, noBody int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, n := range tr.ids {
		if n > 1 {
			dupIDs++
		}
	}
	return tr.total, len(tr.hits), dupIDs, tr.noBody
}

func TestGeneratorCoverage(t *testing.T) {
	t.Parallel()

	tr := newTrafficRecorder()
	ts := httptest.NewServer(tr)
	defer ts.Close()

	g := &Generator{
		BaseURL:      ts.URL,
		MinDelay:     time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		StartupDelay: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Run(ctx)
	}()

	// every distinct route of the catalog has to appear; templated
	// item paths are canonicalized by the recorder.
	want := len(DefaultCatalog())
	deadline := time.Now().Add(30 * time.Second)
	for {
		_, routes, _, _ := tr.snapshot()
		if routes == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d routes exercised", routes, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
	tr.mu.Lock()
	for _, route := range DefaultCatalog() {
		if tr.hits[route.Method+" "+route.Path] == 0 {
			t.Errorf("route %s %s never exercised", route.Method, route.Path)
		}
	}
	tr.mu.Unlock()

	cancel()
	if err := <-done; err != nil {
		t.Error(err)
	}

	total, _, dupIDs, noBody := tr.snapshot()
	if total < want {
		t.Error(`total < want`)
	}
	if dupIDs != 0 {
		t.Error(`dupIDs != 0`)
	}
	if noBody != 0 {
		t.Error("POST calls must carry a body")
	}
}

func TestGeneratorStop(t *testing.T) {
	t.Parallel()

	tr := newTrafficRecorder()
	ts := httptest.NewServer(tr)
	defer ts.Close()

	g := &Generator{
		BaseURL:      ts.URL,
		MinDelay:     time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		StartupDelay: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.Run(ctx)
	}()

	for {
		total, _, _, _ := tr.snapshot()
		if total >= 5 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Error(err)
		}
	case <-time.After(time.Second):
		t.Fatal("generator did not stop within one iteration")
	}

	// no calls may be issued after Run returned
	before, _, _, _ := tr.snapshot()
	time.Sleep(50 * time.Millisecond)
	after, _, _, _ := tr.snapshot()
	if after != before {
		t.Error(`after != before`)
	}
}

func TestGeneratorTargetDown(t *testing.T) {
	t.Parallel()

	// point the generator at a closed port; errors must not stop it.
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	g := &Generator{
		BaseURL:      url,
		MinDelay:     time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		StartupDelay: time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := g.Run(ctx); err != nil {
		t.Error(err)
	}
}

func TestPickRoute(t *testing.T) {
	t.Parallel()

	catalog := []Route{
		{Method: "GET", Path: "/a", Weight: 3},
		{Method: "GET", Path: "/b"}, // zero weight counts as 1
	}
	rnd := rand.New(rand.NewSource(1))

	seen := make(map[string]int)
	for i := 0; i < 1000; i++ {
		r := pickRoute(rnd, catalog, 4)
		seen[r.Path]++
	}
	if seen["/a"]+seen["/b"] != 1000 {
		t.Error(`seen["/a"]+seen["/b"] != 1000`)
	}
	if seen["/b"] == 0 {
		t.Error(`seen["/b"] == 0`)
	}
	if seen["/a"] <= seen["/b"] {
		t.Error(`seen["/a"] <= seen["/b"]`)
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepContext(ctx, time.Hour) {
		t.Error(`sleepContext(ctx, time.Hour)`)
	}

	if !sleepContext(context.Background(), time.Millisecond) {
		t.Error(`!sleepContext(context.Background(), time.Millisecond)`)
	}
}

package busybee

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cybozu-go/log"
	"github.com/cybozu-go/netutil"
	"github.com/google/uuid"
)

// Default traffic generator tuning.
const (
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = 2 * time.Second

	defaultStartupDelay = 2 * time.Second
	generatorTimeout    = 5 * time.Second
)

// Route is one callable endpoint of the demonstration API.
type Route struct {
	Method  string
	Path    string // may contain an "{id}" placeholder
	HasBody bool   // send a JSON body (state-mutating methods)
	Weight  int    // relative pick probability; values below 1 count as 1
}

// DefaultCatalog returns every exercisable endpoint, including the
// error-simulation routes.  Weights bias toward read requests so the
// generated stream looks like organic traffic.
func DefaultCatalog() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/", Weight: 4},
		{Method: http.MethodGet, Path: "/api/tags", Weight: 4},
		{Method: http.MethodGet, Path: "/api/ps", Weight: 4},
		{Method: http.MethodPost, Path: "/api/pull", HasBody: true, Weight: 2},
		{Method: http.MethodPut, Path: "/api/items/{id}", HasBody: true, Weight: 2},
		{Method: http.MethodPatch, Path: "/api/items/{id}", HasBody: true, Weight: 2},
		{Method: http.MethodDelete, Path: "/api/items/{id}", Weight: 2},
		{Method: http.MethodHead, Path: "/api/status", Weight: 2},
		{Method: http.MethodOptions, Path: "/api/options", Weight: 1},
		{Method: http.MethodGet, Path: "/api/error/400", Weight: 1},
		{Method: http.MethodGet, Path: "/api/error/404", Weight: 1},
		{Method: http.MethodGet, Path: "/api/error/500", Weight: 1},
		{Method: http.MethodGet, Path: "/api/error/503", Weight: 1},
		{Method: http.MethodGet, Path: "/api/panic", Weight: 1},
	}
}

// Generator simulates organic traffic by issuing a continuous,
// randomized stream of requests against the service's own routes.
//
// Run is meant to be started by Environment.Go; cancellation of the
// given context is the only way to terminate the loop.  Failures of
// individual calls are contained to their iteration.
type Generator struct {
	// BaseURL is the address of the service to exercise.
	BaseURL string

	// Catalog lists the callable routes.
	// If empty, DefaultCatalog() is used.
	Catalog []Route

	// MinDelay and MaxDelay bound the randomized inter-call delay.
	// Zero values select the defaults.
	MinDelay time.Duration
	MaxDelay time.Duration

	// StartupDelay is how long Run waits before the first call to
	// give the server time to start accepting connections.
	// Zero selects the default of 2 seconds.
	StartupDelay time.Duration

	// Client is the HTTP client to use.
	// If nil, a client with a 5 second timeout is used.
	Client *http.Client

	// Logger for generator diagnostics.
	// If nil, the default logger is used.
	Logger *log.Logger
}

func (g *Generator) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.DefaultLogger()
}

// Run loops until ctx is canceled, then returns nil.
//
// Each iteration picks a weighted-random route from the catalog,
// issues one HTTP call, and waits a randomized delay.  Both the call
// and the delay observe ctx, so a stop is seen within one iteration.
func (g *Generator) Run(ctx context.Context) error {
	catalog := g.Catalog
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}
	total := 0
	for _, r := range catalog {
		w := r.Weight
		if w < 1 {
			w = 1
		}
		total += w
	}

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: generatorTimeout}
	}

	minDelay := g.MinDelay
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	maxDelay := g.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	startup := g.StartupDelay
	if startup <= 0 {
		startup = defaultStartupDelay
	}
	if !sleepContext(ctx, startup) {
		return nil
	}

	g.logger().Info("busybee: starting traffic generator", map[string]interface{}{
		"target": g.BaseURL,
	})

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		g.call(ctx, client, rnd, pickRoute(rnd, catalog, total))

		delay := minDelay
		if maxDelay > minDelay {
			delay += time.Duration(rnd.Int63n(int64(maxDelay - minDelay)))
		}
		if !sleepContext(ctx, delay) {
			return nil
		}
	}
}

func (g *Generator) call(ctx context.Context, client *http.Client, rnd *rand.Rand, route Route) {
	path := route.Path
	if strings.Contains(path, "{id}") {
		path = strings.ReplaceAll(path, "{id}", strconv.Itoa(1000+rnd.Intn(9000)))
	}
	url := strings.TrimSuffix(g.BaseURL, "/") + path

	var body io.Reader
	if route.HasBody {
		payload, err := json.Marshal(map[string]interface{}{
			"id":        uuid.NewString(),
			"synthetic": true,
		})
		if err != nil {
			return
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, route.Method, url, body)
	if err != nil {
		g.logger().Error("busybee: bad generated request", map[string]interface{}{
			"http_method": route.Method,
			"url":         url,
			"error":       err.Error(),
		})
		return
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if route.HasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fields := map[string]interface{}{
			"http_method": route.Method,
			"url":         url,
			"error":       err.Error(),
		}
		switch {
		case netutil.IsConnectionRefused(err):
			g.logger().Debug("busybee: target refused connection", fields)
		case netutil.IsNetworkTimeout(err):
			g.logger().Debug("busybee: generated request timed out", fields)
		default:
			g.logger().Debug("busybee: generated request failed", fields)
		}
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	g.logger().Debug("busybee: generated request", map[string]interface{}{
		"http_method":      route.Method,
		"url":              url,
		"http_status_code": resp.StatusCode,
	})
}

func pickRoute(rnd *rand.Rand, catalog []Route, total int) Route {
	n := rnd.Intn(total)
	for _, r := range catalog {
		w := r.Weight
		if w < 1 {
			w = 1
		}
		n -= w
		if n < 0 {
			return r
		}
	}
	return catalog[len(catalog)-1]
}

// sleepContext sleeps for d unless ctx is canceled first.
// It returns false when canceled.
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package busybee

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cybozu-go/log"
)

// Default latency thresholds for tier classification.
const (
	DefaultWarnThreshold = 100 * time.Millisecond
	DefaultSlowThreshold = 500 * time.Millisecond
)

const (
	faviconPath         = "/favicon.ico"
	faviconCacheSeconds = 31536000 // 1 year
)

// Tier is the latency classification of one request.
type Tier int

// Latency tiers.
const (
	TierFast Tier = iota
	TierWarn
	TierSlow
)

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case TierWarn:
		return "warn"
	case TierSlow:
		return "slow"
	default:
		return "fast"
	}
}

// ClassifyLatency buckets elapsed into a Tier using two thresholds.
// Non-positive thresholds fall back to the defaults.
func ClassifyLatency(elapsed, warn, slow time.Duration) Tier {
	if warn <= 0 {
		warn = DefaultWarnThreshold
	}
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}
	switch {
	case elapsed >= slow:
		return TierSlow
	case elapsed >= warn:
		return TierWarn
	default:
		return TierFast
	}
}

// StatusFamily returns the status code family such as "2xx" or "5xx".
func StatusFamily(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", code/100)
}

// AccessLog is to decode access log records from Instrumentor.
//
// The struct is tagged for JSON formatted records.
type AccessLog struct {
	Topic    string    `json:"topic"`
	LoggedAt time.Time `json:"logged_at"`
	Severity string    `json:"severity"`
	Utsname  string    `json:"utsname"`
	Message  string    `json:"message"`

	Type           string  `json:"type"`             // "access"
	ElapsedMS      float64 `json:"elapsed_ms"`       // elapsed time in milliseconds
	LatencyTier    string  `json:"latency_tier"`     // "fast", "warn" or "slow"
	Protocol       string  `json:"protocol"`         // "HTTP/1.1" or alike
	StatusCode     int     `json:"http_status_code"` // 200, 404, ...
	Method         string  `json:"http_method"`
	RequestURI     string  `json:"url"`
	Host           string  `json:"http_host"`
	RequestLength  int64   `json:"request_size"`
	ResponseLength int64   `json:"response_size"`
	RemoteAddr     string  `json:"remote_ipaddr"`
	UserAgent      string  `json:"http_user_agent"`
	RequestID      string  `json:"id"`
}

// logResponseWriter wraps http.ResponseWriter to record the response
// status and body length.
type logResponseWriter struct {
	http.ResponseWriter
	status      int
	length      int64
	wroteHeader bool
}

func (w *logResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *logResponseWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(data)
	w.length += int64(n)
	return n, err
}

func (w *logResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the original writer for http.ResponseController.
func (w *logResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Instrumentor wraps an http.Handler to emit exactly one access log
// record per request, to assign correlation IDs, and to convert
// handler panics into 500 responses.
type Instrumentor struct {
	// Logger is the sink for structured access logs.
	// If nil, the default logger is used.
	Logger *log.Logger

	// Console, if non-nil, additionally receives one colored line
	// per request.
	Console *Console

	// WarnThreshold and SlowThreshold override the latency tier
	// thresholds.  Zero values select the defaults.
	WarnThreshold time.Duration
	SlowThreshold time.Duration

	once sync.Once
	ids  *IDGenerator
}

func (ins *Instrumentor) logger() *log.Logger {
	if ins.Logger != nil {
		return ins.Logger
	}
	return log.DefaultLogger()
}

// Wrap returns an http.Handler that serves requests with next while
// instrumenting every request.
//
// The returned handler never panics; a panic inside next produces a
// 500 response and is logged with the same correlation ID as the
// request's access log record.
func (ins *Instrumentor) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// favicon requests are answered immediately and kept out of
		// the access log to reduce noise.
		if r.URL.Path == faviconPath {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", faviconCacheSeconds))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		ins.once.Do(func() {
			ins.ids = NewIDGenerator()
		})

		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = ins.ids.Generate()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(WithRequestID(r.Context(), id))

		lw := &logResponseWriter{ResponseWriter: w, status: http.StatusOK}
		ins.serve(next, lw, r, id)

		elapsed := time.Since(start)
		tier := ClassifyLatency(elapsed, ins.WarnThreshold, ins.SlowThreshold)

		ra, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ra = r.RemoteAddr
		}

		al := &AccessLog{
			LoggedAt:       time.Now(),
			Type:           "access",
			ElapsedMS:      float64(elapsed) / float64(time.Millisecond),
			LatencyTier:    tier.String(),
			Protocol:       r.Proto,
			StatusCode:     lw.status,
			Method:         r.Method,
			RequestURI:     r.URL.RequestURI(),
			Host:           r.Host,
			RequestLength:  r.ContentLength,
			ResponseLength: lw.length,
			RemoteAddr:     ra,
			UserAgent:      r.UserAgent(),
			RequestID:      id,
		}
		ins.emit(al)
	})
}

// serve runs next, recovering from panics.  The wrapper must never
// fail to produce a response and a log record.
func (ins *Instrumentor) serve(next http.Handler, lw *logResponseWriter, r *http.Request, id string) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		ins.logger().Error("busybee: panic in handler", map[string]interface{}{
			"id":    id,
			"url":   r.URL.RequestURI(),
			"error": fmt.Sprint(p),
			"stack": string(debug.Stack()),
		})
		if !lw.wroteHeader {
			lw.Header().Set("Content-Type", "text/plain; charset=utf-8")
			lw.WriteHeader(http.StatusInternalServerError)
			lw.Write([]byte("Internal Server Error\n"))
			return
		}
		lw.status = http.StatusInternalServerError
	}()
	next.ServeHTTP(lw, r)
}

func (ins *Instrumentor) emit(al *AccessLog) {
	fields := map[string]interface{}{
		"type":             al.Type,
		"elapsed_ms":       al.ElapsedMS,
		"latency_tier":     al.LatencyTier,
		"protocol":         al.Protocol,
		"http_status_code": al.StatusCode,
		"http_method":      al.Method,
		"url":              al.RequestURI,
		"http_host":        al.Host,
		"request_size":     al.RequestLength,
		"response_size":    al.ResponseLength,
		"remote_ipaddr":    al.RemoteAddr,
		"http_user_agent":  al.UserAgent,
		"id":               al.RequestID,
	}

	lv := log.LvInfo
	switch {
	case al.StatusCode >= 500:
		lv = log.LvError
	case al.StatusCode >= 400:
		lv = log.LvWarn
	}
	ins.logger().Log(lv, "busybee: access", fields)

	if ins.Console != nil {
		ins.Console.Print(al)
	}
}

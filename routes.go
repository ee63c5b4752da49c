package busybee

import (
	"encoding/json"
	"net/http"
	"time"
)

// NewHandler returns the demonstration API.
//
// Besides ordinary endpoints, the mux contains error-simulation
// routes that deterministically return non-2xx statuses, and a panic
// route, so that the access log stream shows varied outcomes.
// Several handlers sleep a little to exercise the latency tiers.
func NewHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, map[string]interface{}{"hello": "world"})
	})

	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		renderJSON(w, http.StatusOK, map[string]interface{}{
			"tags": []string{"busybee", "logging", "lipgloss"},
		})
	})

	mux.HandleFunc("GET /api/ps", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, map[string]interface{}{"ps": "ok"})
	})

	mux.HandleFunc("POST /api/pull", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(120 * time.Millisecond)
		renderJSON(w, http.StatusOK, map[string]interface{}{"pulled": true})
	})

	mux.HandleFunc("PUT /api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		renderItem(w, r, "updated")
	})

	mux.HandleFunc("PATCH /api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		renderItem(w, r, "patched")
	})

	mux.HandleFunc("DELETE /api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		renderItem(w, r, "deleted")
	})

	mux.HandleFunc("HEAD /api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-System-Status", "OK")
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("OPTIONS /api/options", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", "OPTIONS, GET, POST, PUT, PATCH, DELETE, HEAD")
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /api/error/400", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid request parameters",
		})
	})

	mux.HandleFunc("GET /api/error/404", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "Resource not found",
		})
	})

	mux.HandleFunc("GET /api/error/500", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		renderJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Internal server error",
		})
	})

	mux.HandleFunc("GET /api/error/503", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(600 * time.Millisecond)
		renderJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "Service temporarily unavailable",
		})
	})

	mux.HandleFunc("GET /api/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("synthetic handler failure")
	})

	return mux
}

func renderItem(w http.ResponseWriter, r *http.Request, status string) {
	renderJSON(w, http.StatusOK, map[string]interface{}{
		"method": r.Method,
		"id":     r.PathValue("id"),
		"status": status,
	})
}

func renderJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

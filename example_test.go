package busybee_test

import (
	"context"
	"net/http"
	"os"

	"github.com/cybozu-go/busybee"
	"github.com/cybozu-go/log"
	"github.com/spf13/pflag"
)

// The most basic usage: an instrumented server plus the traffic
// generator, sharing one environment.
func Example() {
	pflag.Parse()
	busybee.LogConfig{}.Apply()

	env := busybee.NewEnvironment(context.Background())
	env.Go(busybee.HandleSignal)

	s := &busybee.HTTPServer{
		Server: &http.Server{
			Addr:    ":8000",
			Handler: busybee.NewHandler(),
		},
		Console: busybee.NewConsole(os.Stdout),
		Env:     env,
	}

	// ListenAndServe binds synchronously, then serves in a goroutine
	// managed by env.
	err := s.ListenAndServe()
	if err != nil {
		log.ErrorExit(err)
	}

	g := &busybee.Generator{
		BaseURL: "http://127.0.0.1:8000",
	}
	env.Go(g.Run)

	// Wait waits for SIGINT or SIGTERM.
	err = env.Wait()
	if err != nil && !busybee.IsSignaled(err) {
		log.ErrorExit(err)
	}
}

// Wrapping an arbitrary handler with the instrumentation middleware.
func ExampleInstrumentor() {
	ins := &busybee.Instrumentor{}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// the correlation ID is available to handlers
		id := busybee.RequestIDFromContext(r.Context())
		log.Info("handling", map[string]interface{}{"id": id})
		w.Write([]byte("hello"))
	})

	http.ListenAndServe(":8000", ins.Wrap(mux))
}

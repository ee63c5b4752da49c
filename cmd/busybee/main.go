package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/cybozu-go/busybee"
	"github.com/cybozu-go/log"
	"github.com/spf13/pflag"
)

var flgConfig = pflag.StringP("config", "f", "", "Configuration file name")

func init() {
	pflag.String("listen", busybee.DefaultListenAddr, "Listen address")
	pflag.Int("warn-ms", 100, "Latency warn threshold in milliseconds")
	pflag.Int("slow-ms", 500, "Latency slow threshold in milliseconds")
	pflag.Bool("console", true, "Write colored access log lines to stdout")
	pflag.Bool("generate", true, "Run the background traffic generator")
	pflag.String("target-url", busybee.DefaultTargetURL, "Base URL the traffic generator exercises")
	pflag.Int("min-delay-ms", 500, "Minimum delay between generated calls in milliseconds")
	pflag.Int("max-delay-ms", 2000, "Maximum delay between generated calls in milliseconds")
}

func main() {
	pflag.Parse()

	cfg := busybee.NewConfig()
	if *flgConfig != "" {
		if err := cfg.DecodeFile(*flgConfig); err != nil {
			log.ErrorExit(err)
		}
	}
	v := busybee.NewViper()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		log.ErrorExit(err)
	}
	cfg.ApplyOverrides(v)
	if err := cfg.Validate(); err != nil {
		log.ErrorExit(err)
	}
	if err := cfg.Log.Apply(); err != nil {
		log.ErrorExit(err)
	}

	busybee.HandleSigPipe()

	env := busybee.NewEnvironment(context.Background())
	env.Go(busybee.HandleSignal)

	var console *busybee.Console
	if cfg.Console {
		console = busybee.NewConsole(os.Stdout)
	}

	s := &busybee.HTTPServer{
		Server: &http.Server{
			Addr:        cfg.Listen,
			Handler:     busybee.NewHandler(),
			ReadTimeout: 30 * time.Second,
		},
		Console:         console,
		WarnThreshold:   cfg.WarnThreshold(),
		SlowThreshold:   cfg.SlowThreshold(),
		ShutdownTimeout: 10 * time.Second,
		Env:             env,
	}
	if err := s.ListenAndServe(); err != nil {
		log.ErrorExit(err)
	}
	log.Info("busybee: listening", map[string]interface{}{
		"address": cfg.Listen,
	})

	if cfg.Generator.Enabled {
		g := &busybee.Generator{
			BaseURL:  cfg.Generator.TargetURL,
			MinDelay: cfg.MinDelay(),
			MaxDelay: cfg.MaxDelay(),
		}
		env.Go(g.Run)
	}

	err := env.Wait()
	if err != nil && !busybee.IsSignaled(err) {
		log.ErrorExit(err)
	}
}

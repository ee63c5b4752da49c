package busybee

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	if c.Listen != DefaultListenAddr {
		t.Error(`c.Listen != DefaultListenAddr`)
	}
	if c.WarnThreshold() != DefaultWarnThreshold {
		t.Error(`c.WarnThreshold() != DefaultWarnThreshold`)
	}
	if c.SlowThreshold() != DefaultSlowThreshold {
		t.Error(`c.SlowThreshold() != DefaultSlowThreshold`)
	}
	if !c.Generator.Enabled {
		t.Error(`!c.Generator.Enabled`)
	}
	if c.Generator.TargetURL != DefaultTargetURL {
		t.Error(`c.Generator.TargetURL != DefaultTargetURL`)
	}
	if err := c.Validate(); err != nil {
		t.Error(err)
	}
}

func TestConfigDecodeFile(t *testing.T) {
	t.Parallel()

	data := `
listen = "localhost:9999"
warn_ms = 50
slow_ms = 300

[log]
level = "debug"
format = "json"

[generator]
enabled = false
target_url = "http://localhost:9999"
min_delay_ms = 100
max_delay_ms = 200
`
	path := filepath.Join(t.TempDir(), "busybee.toml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewConfig()
	if err := c.DecodeFile(path); err != nil {
		t.Fatal(err)
	}

	if c.Listen != "localhost:9999" {
		t.Error(`c.Listen != "localhost:9999"`)
	}
	if c.WarnThreshold() != 50*time.Millisecond {
		t.Error(`c.WarnThreshold() != 50*time.Millisecond`)
	}
	if c.SlowThreshold() != 300*time.Millisecond {
		t.Error(`c.SlowThreshold() != 300*time.Millisecond`)
	}
	if c.Log.Level != "debug" {
		t.Error(`c.Log.Level != "debug"`)
	}
	if c.Log.Format != "json" {
		t.Error(`c.Log.Format != "json"`)
	}
	if c.Generator.Enabled {
		t.Error(`c.Generator.Enabled`)
	}
	if c.MinDelay() != 100*time.Millisecond {
		t.Error(`c.MinDelay() != 100*time.Millisecond`)
	}
	if c.MaxDelay() != 200*time.Millisecond {
		t.Error(`c.MaxDelay() != 200*time.Millisecond`)
	}
	if err := c.Validate(); err != nil {
		t.Error(err)
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("BUSYBEE_WARN_MS", "30")
	t.Setenv("BUSYBEE_SLOW_MS", "60")
	t.Setenv("BUSYBEE_TARGET_URL", "http://127.0.0.1:9001")

	c := NewConfig()
	c.ApplyOverrides(NewViper())

	if c.WarnMS != 30 {
		t.Error(`c.WarnMS != 30`)
	}
	if c.SlowMS != 60 {
		t.Error(`c.SlowMS != 60`)
	}
	if c.Generator.TargetURL != "http://127.0.0.1:9001" {
		t.Error(`c.Generator.TargetURL != "http://127.0.0.1:9001"`)
	}
	// untouched values keep their defaults
	if c.Listen != DefaultListenAddr {
		t.Error(`c.Listen != DefaultListenAddr`)
	}
}

func TestConfigFlagOverrides(t *testing.T) {
	t.Setenv("BUSYBEE_WARN_MS", "30")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("warn-ms", 100, "")
	fs.Int("slow-ms", 500, "")
	if err := fs.Parse([]string{"--warn-ms=42"}); err != nil {
		t.Fatal(err)
	}

	v := NewViper()
	if err := v.BindPFlags(fs); err != nil {
		t.Fatal(err)
	}

	c := NewConfig()
	c.ApplyOverrides(v)

	// a changed flag beats the environment
	if c.WarnMS != 42 {
		t.Error(`c.WarnMS != 42`)
	}
	// an unchanged flag does not override anything
	if c.SlowMS != 500 {
		t.Error(`c.SlowMS != 500`)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	c.WarnMS = 500
	c.SlowMS = 100
	if c.Validate() == nil {
		t.Error("warn >= slow should be an error")
	}

	c = NewConfig()
	c.Generator.MinDelayMS = 0
	if c.Validate() == nil {
		t.Error("zero min delay should be an error")
	}

	c = NewConfig()
	c.Generator.MaxDelayMS = c.Generator.MinDelayMS - 1
	if c.Validate() == nil {
		t.Error("max < min should be an error")
	}

	c = NewConfig()
	c.Generator.TargetURL = "ftp://example.com"
	if c.Validate() == nil {
		t.Error("non-http target should be an error")
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testInstrument = `
name: megara
telescope: GTC
detector: E2V
wheel: [LR-U, LR-B]
bundles: [LCB]
lamp_units:
  - name: a
    lamps: [ThAr]
grid: {start: 4000, stop: 6000, samples: 3}
sky: {level: 2}
profiles:
  arc: {cover: open, cu: a, vph: LR-B}
---
telescopes:
  GTC: {diameter: 10.4}
detectors:
  E2V: {size_x: 4096, size_y: 4112, pixel_size: 15, saturation: 1.0e12}
vph:
  LR-U: {resolution: 6000}
  LR-B: {resolution: 6500}
bundles:
  LCB: {fibers: 623, size: 0.62, fwhm: 3.6}
lamps:
  ThAr: {level: 100}
`

// writeTestConfig writes a config and an instrument file into a temp dir
// and returns the config path.
func writeTestConfig(t *testing.T, apiPort int) string {
	t.Helper()
	tmpDir := t.TempDir()
	instPath := filepath.Join(tmpDir, "instrument.yaml")
	if err := os.WriteFile(instPath, []byte(testInstrument), 0600); err != nil {
		t.Fatalf("failed to write instrument file: %v", err)
	}

	configContent := fmt.Sprintf(`
site:
  id: test-site

instrument:
  file: %q

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  enabled: true
  host: "127.0.0.1"
  port: %d

logging:
  level: error
  format: text
  output: stderr
`, instPath, filepath.Join(tmpDir, "test.db"), apiPort)

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// TestParseFlags verifies flag defaults and values.
func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.exptime != -1 || opts.count != 1 || opts.serve || opts.dot != "" {
		t.Errorf("defaults = %+v", opts)
	}

	opts, err = parseFlags([]string{"-config", "c.yaml", "-profile", "arc", "-exposure", "10", "-n", "3", "-serve", "-dot", "-"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	want := options{configPath: "c.yaml", profile: "arc", exptime: 10, count: 3, serve: true, dot: "-"}
	if opts != want {
		t.Errorf("parseFlags() = %+v, want %+v", opts, want)
	}

	if _, err := parseFlags([]string{"extra"}); err == nil {
		t.Error("parseFlags() with positional argument: want error")
	}
	if _, err := parseFlags([]string{"-migrate", "up"}); err == nil {
		t.Error("parseFlags(-migrate up): want error")
	}
	if _, err := parseFlags([]string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("parseFlags(-h) error = %v, want flag.ErrHelp", err)
	}
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	err := run(context.Background(), []string{"-config", "/nonexistent/path/config.yaml"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ExposeAndDot takes two images and renders the light path.
func TestRun_ExposeAndDot(t *testing.T) {
	configPath := writeTestConfig(t, 18080)

	var out bytes.Buffer
	args := []string{"-config", configPath, "-profile", "arc", "-exposure", "10", "-n", "2", "-dot", "-"}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := out.String()
	if !strings.HasPrefix(got, `digraph "megara" {`) {
		t.Errorf("output does not start with the dot graph:\n%s", got)
	}
	for _, name := range []string{"r00001.fits", "r00002.fits"} {
		if !strings.Contains(got, name) {
			t.Errorf("output missing %s:\n%s", name, got)
		}
	}
	if !strings.Contains(got, "3000 counts") {
		t.Errorf("output missing lamp counts:\n%s", got)
	}
}

// TestRun_UnknownProfile verifies a bad profile name stops the run.
func TestRun_UnknownProfile(t *testing.T) {
	configPath := writeTestConfig(t, 18080)
	err := run(context.Background(), []string{"-config", configPath, "-profile", "flat"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "applying profile") {
		t.Errorf("run() error = %v, want profile error", err)
	}
}

// TestRun_InvalidExposure verifies out-of-range exposure times fail.
func TestRun_InvalidExposure(t *testing.T) {
	configPath := writeTestConfig(t, 18080)
	err := run(context.Background(), []string{"-config", configPath, "-exposure", "1", "-n", "0"}, &bytes.Buffer{})
	if err == nil {
		t.Error("run() with -n 0: want error")
	}
}

// TestRun_Migrate reports the schema status and rolls it back.
func TestRun_Migrate(t *testing.T) {
	configPath := writeTestConfig(t, 18080)
	migrate := func(action string) string {
		t.Helper()
		var out bytes.Buffer
		if err := run(context.Background(), []string{"-config", configPath, "-migrate", action}, &out); err != nil {
			t.Fatalf("run(-migrate %s) error = %v", action, err)
		}
		return out.String()
	}

	if got := migrate("status"); got != "20261014_120000\tinitial_schema\tpending\n" {
		t.Errorf("status before first run = %q", got)
	}

	// A normal run applies the schema.
	if err := run(context.Background(), []string{"-config", configPath, "-exposure", "1"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := migrate("status"); strings.Contains(got, "pending") {
		t.Errorf("status after run = %q, want applied", got)
	}

	got := migrate("down")
	if !strings.HasPrefix(got, "rolled back 20261014_120000 initial_schema\n") || !strings.HasSuffix(got, "\tpending\n") {
		t.Errorf("down = %q", got)
	}
	if got := migrate("down"); !strings.HasPrefix(got, "nothing to roll back") {
		t.Errorf("second down = %q", got)
	}
}

// TestRun_ServeAndShutdown starts the daemon, queries the API and stops
// it through the context.
func TestRun_ServeAndShutdown(t *testing.T) {
	const port = 19382
	configPath := writeTestConfig(t, port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-config", configPath, "-serve"}, &bytes.Buffer{})
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	var status int
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			status = resp.StatusCode
			resp.Body.Close()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if status != http.StatusOK {
		t.Errorf("health status = %d, want 200", status)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("CONECTSIM_CONFIG", "")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("CONECTSIM_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestLoadConfig_BuiltinFallback verifies a missing default file falls back
// to the built-in configuration, while a missing explicit file fails.
func TestLoadConfig_BuiltinFallback(t *testing.T) {
	t.Setenv("CONECTSIM_CONFIG", "")

	cfg, path, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if path != "(built-in)" || cfg.Control.NameTemplate != "r%05d.fits" {
		t.Errorf("loadConfig() = %q, %+v", path, cfg.Control)
	}

	t.Setenv("CONECTSIM_CONFIG", "/nonexistent/config.yaml")
	if _, _, err := loadConfig(""); err == nil {
		t.Error("loadConfig() with missing env file: want error")
	}
}

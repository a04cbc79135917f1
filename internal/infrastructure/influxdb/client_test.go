package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/conectsim/internal/infrastructure/config"
)

// fakeInflux answers /ping and records every /api/v2/write body.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeInflux) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (f *fakeInflux) received() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "conectsim-dev-token",
		Org:           "conectsim",
		Bucket:        "instrument",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	client, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	// Reserve a port then close it so nothing is listening.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := Connect(testConfig(url)); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectWriteAndClose(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	client.WriteDeviceMetric("wheel", "position", 2)
	client.WriteExposure(ExposureMetric{Name: "r00001.fits", Instrument: "megara", Exptime: 10, Total: 4.5})
	client.Flush()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(fake.received(), "exposure,") && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	got := fake.received()
	if !strings.Contains(got, "device_state,device=wheel,measurement=position value=") {
		t.Errorf("device point missing from writes: %q", got)
	}
	if !strings.Contains(got, "exposure,instrument=megara") {
		t.Errorf("exposure point missing from writes: %q", got)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
	// No-ops once closed.
	client.Flush()
	client.WriteDeviceMetric("wheel", "position", 3)
}

func TestClose_Nil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
	client.Flush()
}

func TestExposurePoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	line := write.PointToLineProtocol(exposurePoint(ExposureMetric{
		Name:       "r00007.fits",
		Instrument: "megara",
		Exptime:    30,
		Total:      12.5,
		Saturated:  true,
	}, ts), time.Second)

	for _, want := range []string{
		"exposure,instrument=megara ",
		`name="r00007.fits"`,
		"saturated=true",
		"exptime=30",
		" 1700000000",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestDevicePoint(t *testing.T) {
	p := devicePoint("cover", "position", 3, time.Unix(10, 0))
	if p.Name() != MeasurementDevice {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementDevice)
	}
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["device"] != "cover" || tags["measurement"] != "position" {
		t.Errorf("tags = %v", tags)
	}
}

package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/fan-bank/internal/bank"
	"github.com/sweeney/fan-bank/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:        500,
		Channels:      8,
		MaxDuty:       1023,
		EdgesPerPulse: 2,
		PulsesPerRev:  2,
		HealthRPM:     500,
		Broker:        "tcp://192.168.1.200:1883",
		HTTPAddr:      ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func testReport() bank.Report {
	return bank.Report{
		Channels: []bank.ChannelStatus{
			{ID: 0, Percent: 70, Hz: 50, RPM: 1500, Healthy: true, Available: true},
			{ID: 1, Percent: 40, Hz: 0, RPM: 0, Healthy: false, Available: true},
			{ID: 2, Available: false},
		},
	}
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(testReport())
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if len(sj.Status.Fans) != 3 {
		t.Fatalf("Fans: got %d, want 3", len(sj.Status.Fans))
	}
	if sj.Status.Fans[0].RPM != 1500 {
		t.Errorf("Fans[0].RPM: got %v, want 1500", sj.Status.Fans[0].RPM)
	}
	if !sj.Status.Fans[0].Healthy {
		t.Error("expected Fans[0].Healthy=true")
	}
	if sj.Status.Fans[2].Available {
		t.Error("expected Fans[2].Available=false")
	}
	if sj.Status.ActiveFans != 1 {
		t.Errorf("ActiveFans: got %d, want 1", sj.Status.ActiveFans)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Config.PollMs != 500 {
		t.Errorf("Config.PollMs: got %d, want 500", sj.Status.Config.PollMs)
	}
	if sj.Status.Config.MaxDuty != 1023 {
		t.Errorf("Config.MaxDuty: got %d, want 1023", sj.Status.Config.MaxDuty)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(testReport())

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	if !strings.Contains(page, "Fan Bank") {
		t.Error("page missing title")
	}
	if !strings.Contains(page, "STALLED") {
		t.Error("page missing stalled marker for powered fan with no feedback")
	}
	if !strings.Contains(page, "unavailable") {
		t.Error("page missing unavailable marker")
	}
}

func TestHTMLShowsStoppedBanner(t *testing.T) {
	ts, tr := newTestServer(t)
	r := testReport()
	r.Stopped = true
	tr.Update(r)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "[STOPPED]") {
		t.Error("page missing stopped banner")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	resp1, _ := http.Get(ts.URL + "/index.json")
	var sj1 status.StatusJSON
	json.NewDecoder(resp1.Body).Decode(&sj1)
	resp1.Body.Close()
	if len(sj1.Status.Fans) != 0 {
		t.Errorf("expected no fans before first update, got %d", len(sj1.Status.Fans))
	}

	tr.Update(testReport())
	tr.SetMQTTConnected(true)

	resp2, _ := http.Get(ts.URL + "/index.json")
	var sj2 status.StatusJSON
	json.NewDecoder(resp2.Body).Decode(&sj2)
	resp2.Body.Close()

	if len(sj2.Status.Fans) != 3 {
		t.Errorf("Fans after update: got %d, want 3", len(sj2.Status.Fans))
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

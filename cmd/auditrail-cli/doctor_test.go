package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/persistorai/auditrail/client"
)

func doctorServer(t *testing.T, readyStatus int) *client.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(client.HealthResponse{Status: "ok", Version: "1.0.0", Database: "connected"}) //nolint:errcheck
	})
	mux.HandleFunc("GET /api/v1/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(readyStatus)
		json.NewEncoder(w).Encode(client.ReadinessResponse{Status: "whatever"}) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	flagURL = srv.URL
	return client.New(srv.URL)
}

func TestDoctorChecks(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		isolate(t)
		c := doctorServer(t, http.StatusOK)

		for _, r := range doctorChecks(c) {
			if !r.Passed {
				t.Errorf("%s failed: %s", r.Name, r.Hint)
			}
		}
	})

	t.Run("not ready", func(t *testing.T) {
		isolate(t)
		c := doctorServer(t, http.StatusServiceUnavailable)

		results := doctorChecks(c)
		last := results[len(results)-1]
		if last.Name != "Server ready" || last.Passed {
			t.Errorf("expected failing readiness check, got %+v", last)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		isolate(t)
		c := client.New("http://127.0.0.1:1")

		results := doctorChecks(c)
		last := results[len(results)-1]
		if last.Name != "Server reachable" || last.Passed {
			t.Errorf("expected failing reachability check, got %+v", last)
		}
	})
}

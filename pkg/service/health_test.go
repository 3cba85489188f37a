// Copyright 2025 Certen Protocol

package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen/eth-lc-coprocessor/pkg/history"
)

func TestServer_HealthzReportsLoopStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := New(Config{
		Beacon:  &fakeBeacon{},
		Prover:  &fakeProver{},
		History: history.New(),
		Metrics: NewMetrics(reg),
	})
	l.runIteration(context.Background())

	srv := NewServer(l, reg)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.State != LoopStateRunning {
		t.Fatalf("expected running state, got %s", status.State)
	}
}

func TestServer_MetricsExposesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := New(Config{Beacon: &fakeBeacon{}, Prover: &fakeProver{}, History: history.New(), Metrics: NewMetrics(reg)})

	srv := NewServer(l, reg)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a non-empty metrics exposition body")
	}
}

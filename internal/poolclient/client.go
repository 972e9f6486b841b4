// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package poolclient implements the HTTP client issuing getMiningInfo
// and submitNonce requests against a pool or solo wallet, including
// the proxy-mode header set described in spec §4.8.
package poolclient

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/signum-network/signum-miner-go/internal/mlog"
	"github.com/signum-network/signum-miner-go/internal/version"
)

var log = mlog.Logger(mlog.SubsystemPool)

// MiningInfo mirrors the pool's getMiningInfo response.
type MiningInfo struct {
	Height             uint64 `json:"height,string"`
	BaseTarget         uint64 `json:"baseTarget,string"`
	GenerationSignature string `json:"generationSignature"`
	TargetDeadline     uint64 `json:"targetDeadline,string"`
}

// GenSigBytes decodes the hex-encoded generation signature into its
// raw 32 bytes.
func (m MiningInfo) GenSigBytes() ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(m.GenerationSignature)
	if err != nil || len(raw) != 32 {
		return out, fmt.Errorf("poolclient: invalid generationSignature %q", m.GenerationSignature)
	}
	copy(out[:], raw)
	return out, nil
}

// SubmitResponse is the JSON body returned by submitNonce: either
// {"deadline": N} on success, or {"errorCode", "errorDescription"} on
// pool-side rejection.
type SubmitResponse struct {
	Deadline         uint64 `json:"deadline,string"`
	ErrorCode        int    `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

// IsError reports whether the pool rejected the submission (any
// response carrying an errorDescription or a nonzero errorCode, per
// spec §4.7).
func (r SubmitResponse) IsError() bool { return r.ErrorDescription != "" || r.ErrorCode != 0 }

// Transient reports whether the rejection is the "pool busy" class
// that warrants a retry: an empty message or the literal string
// "limit exceeded", per spec §4.7.
func (r SubmitResponse) Transient() bool {
	return r.IsError() && (r.ErrorDescription == "" || r.ErrorDescription == "limit exceeded")
}

// ProxyDetails configures the optional X-Capacity/X-Miner/X-Minername
// /X-Plotfile header set sent by proxy-style miners, per spec §4.8.
type ProxyDetails struct {
	Enabled  bool
	Hostname string
}

// Client talks to one pool/wallet base URI.
type Client struct {
	baseURL string
	hc      *http.Client
	limiter *rate.Limiter

	mu                sync.Mutex
	proxy             ProxyDetails
	additionalHeaders map[string]string
	capacityGB        float64

	secretPhrases map[uint64]string
}

// Config bundles Client construction parameters.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	Proxy             ProxyDetails
	AdditionalHeaders map[string]string
	SecretPhrases     map[uint64]string
	// RateLimit bounds outbound requests/sec; zero disables limiting.
	RateLimit rate.Limit
	Burst     int
}

func New(cfg Config) *Client {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(cfg.RateLimit, cfg.Burst)
	}
	return &Client{
		baseURL:           cfg.BaseURL,
		hc:                &http.Client{Timeout: cfg.Timeout},
		limiter:           limiter,
		proxy:             cfg.Proxy,
		additionalHeaders: cfg.AdditionalHeaders,
		secretPhrases:     cfg.SecretPhrases,
	}
}

// SetCapacityGB updates the advertised X-Capacity header in place
// under lock, called by the capacity-rescan task per spec §4.8.
func (c *Client) SetCapacityGB(gb float64) {
	c.mu.Lock()
	c.capacityGB = gb
	c.mu.Unlock()
}

func (c *Client) headers() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := http.Header{}
	h.Set("User-Agent", version.UserAgent())
	if c.proxy.Enabled {
		h.Set("X-Capacity", strconv.FormatFloat(c.capacityGB, 'f', 2, 64))
		h.Set("X-Miner", version.UserAgent())
		hostname := c.proxy.Hostname
		if hostname == "" {
			hostname, _ = os.Hostname()
		}
		h.Set("X-Minername", hostname)
		h.Set("X-Plotfile", "signum-miner-proxy/"+hostname)
	}
	for k, v := range c.additionalHeaders {
		h.Set(k, v)
	}
	return h
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// GetMiningInfo issues GET <base>/burst?requestType=getMiningInfo.
func (c *Client) GetMiningInfo(ctx context.Context) (MiningInfo, error) {
	if err := c.wait(ctx); err != nil {
		return MiningInfo{}, err
	}

	u := c.baseURL + "/burst?requestType=getMiningInfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return MiningInfo{}, err
	}
	req.Header = c.headers()

	resp, err := c.hc.Do(req)
	if err != nil {
		return MiningInfo{}, fmt.Errorf("poolclient: getMiningInfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MiningInfo{}, fmt.Errorf("poolclient: getMiningInfo: read body: %w", err)
	}

	var info MiningInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return MiningInfo{}, fmt.Errorf("poolclient: getMiningInfo: decode: %w", err)
	}
	return info, nil
}

// SubmitNonceParams is the set of values needed to build a
// submitNonce request.
type SubmitNonceParams struct {
	AccountID          uint64
	Nonce              uint64
	Height             uint64
	DeadlineUnadjusted uint64
	Deadline           uint64
}

// SubmitNonce issues POST <base>/burst?requestType=submitNonce&...,
// choosing between solo mode (secretPhrase) and pool mode (deadline
// query param) per whether a secret phrase is configured for the
// account, per spec §4.7.
func (c *Client) SubmitNonce(ctx context.Context, p SubmitNonceParams) (SubmitResponse, error) {
	if err := c.wait(ctx); err != nil {
		return SubmitResponse{}, err
	}

	q := url.Values{}
	q.Set("requestType", "submitNonce")
	q.Set("accountId", strconv.FormatUint(p.AccountID, 10))
	q.Set("nonce", strconv.FormatUint(p.Nonce, 10))
	q.Set("blockheight", strconv.FormatUint(p.Height, 10))

	secretPhrase, solo := c.secretPhrases[p.AccountID]
	if solo && secretPhrase != "" {
		q.Set("secretPhrase", secretPhrase)
	} else {
		q.Set("deadline", strconv.FormatUint(p.DeadlineUnadjusted, 10))
	}

	u := c.baseURL + "/burst?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return SubmitResponse{}, err
	}
	req.Header = c.headers()
	req.Header.Set("X-Deadline", strconv.FormatUint(p.Deadline, 10))

	resp, err := c.hc.Do(req)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("poolclient: submitNonce: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("poolclient: submitNonce: read body: %w", err)
	}

	var sr SubmitResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return SubmitResponse{}, fmt.Errorf("poolclient: submitNonce: decode: %w", err)
	}
	return sr, nil
}

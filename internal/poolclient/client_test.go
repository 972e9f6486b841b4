// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package poolclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMiningInfoParsesQuotedIntegers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getMiningInfo", r.URL.Query().Get("requestType"))
		w.Write([]byte(`{"height":"12345","baseTarget":"987654321","generationSignature":"` +
			"4a6f686e6e7946464d206861742064656e206772f6df74656e2050656e697321" + `","targetDeadline":"1000000"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	info, err := c.GetMiningInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), info.Height)
	assert.Equal(t, uint64(987654321), info.BaseTarget)
	assert.Equal(t, uint64(1000000), info.TargetDeadline)

	gensig, err := info.GenSigBytes()
	require.NoError(t, err)
	assert.Len(t, gensig, 32)
}

func TestSubmitNoncePoolModeIncludesDeadlineNotSecretPhrase(t *testing.T) {
	var gotQuery url.Values
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotHeader = r.Header
		w.Write([]byte(`{"deadline":"1193"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	resp, err := c.SubmitNonce(context.Background(), SubmitNonceParams{
		AccountID: 42, Nonce: 7, Height: 100, DeadlineUnadjusted: 1193000, Deadline: 1193,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1193), resp.Deadline)
	assert.False(t, resp.IsError())

	assert.Empty(t, gotQuery.Get("secretPhrase"))
	assert.Equal(t, "1193000", gotQuery.Get("deadline"))
	assert.Equal(t, "1193", gotHeader.Get("X-Deadline"))
}

func TestSubmitNonceSoloModeOmitsDeadlineParam(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"deadline":"5"}`))
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL:       srv.URL,
		Timeout:       2 * time.Second,
		SecretPhrases: map[uint64]string{42: "correct horse battery staple"},
	})
	_, err := c.SubmitNonce(context.Background(), SubmitNonceParams{AccountID: 42, Nonce: 7, Height: 100, Deadline: 5})
	require.NoError(t, err)

	assert.Equal(t, "correct horse battery staple", gotQuery.Get("secretPhrase"))
	assert.Empty(t, gotQuery.Get("deadline"))
}

func TestSubmitResponseTransientClassification(t *testing.T) {
	assert.True(t, SubmitResponse{ErrorCode: 4, ErrorDescription: "limit exceeded"}.Transient())
	assert.True(t, SubmitResponse{ErrorCode: 4, ErrorDescription: ""}.Transient())
	assert.False(t, SubmitResponse{ErrorCode: 4, ErrorDescription: "duplicate nonce"}.Transient())
	assert.False(t, SubmitResponse{Deadline: 1193}.IsError())
}

func TestProxyHeadersOnlySentWhenEnabled(t *testing.T) {
	c := New(Config{BaseURL: "http://example.invalid", Proxy: ProxyDetails{Enabled: false}})
	h := c.headers()
	assert.Empty(t, h.Get("X-Capacity"))

	c2 := New(Config{BaseURL: "http://example.invalid", Proxy: ProxyDetails{Enabled: true, Hostname: "rig1"}})
	c2.SetCapacityGB(12.5)
	h2 := c2.headers()
	assert.Equal(t, "12.50", h2.Get("X-Capacity"))
	assert.Equal(t, "rig1", h2.Get("X-Minername"))
	assert.Equal(t, "signum-miner-proxy/rig1", h2.Get("X-Plotfile"))
}

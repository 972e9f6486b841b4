// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package submit

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/signum-network/signum-miner-go/internal/poolclient"
)

func TestPipelineTransientErrorRequeues(t *testing.T) {
	withShortDebounce(t, 20*time.Millisecond)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Write([]byte(`{"errorCode":4,"errorDescription":"limit exceeded"}`))
			return
		}
		w.Write([]byte(`{"deadline":"100"}`))
	}))
	defer srv.Close()

	client := poolclient.New(poolclient.Config{BaseURL: srv.URL, Timeout: time.Second})
	pipeline := New(client, time.Second)
	defer pipeline.Close()

	pipeline.Submit(Params{AccountID: 1, Block: 1, Deadline: 100})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, 2*time.Second, 10*time.Millisecond, "expected the transient failure to be retried")
}

func TestPipelineHardErrorDoesNotRequeue(t *testing.T) {
	withShortDebounce(t, 20*time.Millisecond)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"errorCode":5,"errorDescription":"duplicate nonce submitted"}`))
	}))
	defer srv.Close()

	client := poolclient.New(poolclient.Config{BaseURL: srv.URL, Timeout: time.Second})
	pipeline := New(client, time.Second)
	defer pipeline.Close()

	pipeline.Submit(Params{AccountID: 1, Block: 1, Deadline: 100})

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a hard pool error must not be retried")
}

func TestPipelineMismatchedDeadlineDoesNotRequeue(t *testing.T) {
	withShortDebounce(t, 20*time.Millisecond)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"deadline":"999"}`))
	}))
	defer srv.Close()

	client := poolclient.New(poolclient.Config{BaseURL: srv.URL, Timeout: time.Second})
	pipeline := New(client, time.Second)
	defer pipeline.Close()

	pipeline.Submit(Params{AccountID: 1, Block: 1, Deadline: 100})

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a deadline mismatch must not be retried")
}

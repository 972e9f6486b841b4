// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package submit

import (
	"context"
	"time"

	"github.com/signum-network/signum-miner-go/internal/mlog"
	"github.com/signum-network/signum-miner-go/internal/poolclient"
)

var log = mlog.Logger(mlog.SubsystemSubm)

// Pipeline wires a PrioRetry queue to a Pool Client: successful
// submissions are logged, transient pool errors (empty message or
// "limit exceeded") and transport errors are re-enqueued, and
// deadline-mismatch or hard pool errors are logged and dropped — the
// exact branches from spec §4.7 and original_source/src/requests.rs's
// handle_submissions.
type Pipeline struct {
	retry   *PrioRetry
	client  *poolclient.Client
	timeout time.Duration
}

// New constructs a Pipeline and starts its consuming goroutine.
func New(client *poolclient.Client, timeout time.Duration) *Pipeline {
	p := &Pipeline{
		retry:   NewPrioRetry(),
		client:  client,
		timeout: timeout,
	}
	go p.consume()
	return p
}

// Submit enqueues params for submission. Never blocks longer than it
// takes PrioRetry's unbuffered input to be read.
func (p *Pipeline) Submit(params Params) {
	p.retry.In <- params
}

// Close stops the pipeline's internal goroutines.
func (p *Pipeline) Close() { p.retry.Close() }

func (p *Pipeline) consume() {
	for params := range p.retry.Out {
		p.submitOnce(params)
	}
}

func (p *Pipeline) submitOnce(params Params) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	resp, err := p.client.SubmitNonce(ctx, poolclient.SubmitNonceParams{
		AccountID:          params.AccountID,
		Nonce:              params.Nonce,
		Height:             params.Height,
		DeadlineUnadjusted: params.DeadlineUnadjusted,
		Deadline:           params.Deadline,
	})
	if err != nil {
		log.Warnf("submit: account %d nonce %d failed, retrying: %v", params.AccountID, params.Nonce, err)
		p.requeue(params)
		return
	}

	switch {
	case resp.IsError() && resp.Transient():
		log.Debugf("submit: account %d nonce %d: pool busy (%s), retrying", params.AccountID, params.Nonce, resp.ErrorDescription)
		p.requeue(params)
	case resp.IsError():
		log.Warnf("submit: account %d nonce %d not accepted: %s", params.AccountID, params.Nonce, resp.ErrorDescription)
	case resp.Deadline != params.Deadline:
		log.Warnf("submit: account %d nonce %d: pool echoed deadline %d, expected %d (mismatch, not retrying)",
			params.AccountID, params.Nonce, resp.Deadline, params.Deadline)
	default:
		log.Infof("submit: account %d nonce %d accepted, deadline %d", params.AccountID, params.Nonce, resp.Deadline)
	}
}

func (p *Pipeline) requeue(params Params) {
	go func() {
		p.retry.In <- params
	}()
}

// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeta(t *testing.T) {
	m, err := ParseMeta("1234567890123456789_1000_500_500")
	require.NoError(t, err)
	assert.Equal(t, uint64(1234567890123456789), m.AccountID)
	assert.Equal(t, uint64(1000), m.StartNonce)
	assert.Equal(t, uint64(500), m.Nonces)
	assert.Equal(t, uint64(500), m.Stagger)
	assert.True(t, m.Optimized())
}

func TestParseMetaStaggered(t *testing.T) {
	m, err := ParseMeta("42_0_1000_100")
	require.NoError(t, err)
	assert.False(t, m.Optimized())
}

func TestParseMetaRejectsGarbage(t *testing.T) {
	_, err := ParseMeta("not-a-plot-file")
	assert.Error(t, err)

	_, err = ParseMeta("1_2_notanumber_4")
	assert.Error(t, err)
}

func TestTotalBytes(t *testing.T) {
	m := Meta{Nonces: 10}
	assert.Equal(t, uint64(10*4096*64), m.TotalBytes())
}

// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package statusserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEndpointServesLatestSnapshot(t *testing.T) {
	s := New("127.0.0.1:0")
	s.SetRoundStatus(RoundStatus{Height: 123, Block: 4, Scanning: true})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got RoundStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(123), got.Height)
	assert.True(t, got.Scanning)
}

func TestDrivesEndpointServesLatestSnapshot(t *testing.T) {
	s := New("127.0.0.1:0")
	s.SetDriveStatus([]DriveStatus{{DriveID: "sda", BytesRead: 1024, TasksDone: 2}})

	req := httptest.NewRequest(http.MethodGet, "/drives", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []DriveStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "sda", got[0].DriveID)
}

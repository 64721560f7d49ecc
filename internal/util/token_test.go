package util

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTokenValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		byteLength int
		wantLen    int
	}{
		{name: "default size", byteLength: 0, wantLen: 64},
		{name: "negative falls back to default", byteLength: -4, wantLen: 64},
		{name: "16 bytes", byteLength: 16, wantLen: 32},
		{name: "1 byte", byteLength: 1, wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CreateTokenValue(tt.byteLength)
			assert.Len(t, got, tt.wantLen)

			_, err := hex.DecodeString(got)
			require.NoError(t, err)
		})
	}
}

func TestCreateTokenValue_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 100)
	for range 100 {
		v := CreateTokenValue(DefaultTokenBytes)
		_, dup := seen[v]
		require.False(t, dup, "duplicate token %s", v)
		seen[v] = struct{}{}
	}
}

func TestHashTokenValue(t *testing.T) {
	t.Parallel()

	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashTokenValue("abc"))

	assert.Equal(t, HashTokenValue("token"), HashTokenValue("token"))
	assert.NotEqual(t, HashTokenValue("token-a"), HashTokenValue("token-b"))
	assert.Len(t, HashTokenValue(""), 64)
}

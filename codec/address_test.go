// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/require"
)

func TestCreateAddress(t *testing.T) {
	require := require.New(t)

	id := ids.GenerateTestID()
	addr := CreateAddress(7, id)
	require.Equal(uint8(7), addr.TypeID())
	require.Equal(id[:], addr[1:])
}

func TestAddressText(t *testing.T) {
	require := require.New(t)

	addr := CreateAddress(1, ids.GenerateTestID())
	b, err := addr.MarshalText()
	require.NoError(err)
	require.Equal(addr.String(), string(b))

	var parsed Address
	require.NoError(parsed.UnmarshalText(b))
	require.Equal(addr, parsed)

	// prefix is optional
	parsed, err = ParseAddress(addr.String()[2:])
	require.NoError(err)
	require.Equal(addr, parsed)
}

func TestAddressJSON(t *testing.T) {
	require := require.New(t)

	type holder struct {
		Owner Address `json:"owner"`
	}
	h := holder{Owner: CreateAddress(2, ids.GenerateTestID())}
	b, err := json.Marshal(h)
	require.NoError(err)

	var decoded holder
	require.NoError(json.Unmarshal(b, &decoded))
	require.Equal(h, decoded)
}

func TestParseAddressErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not hex", input: "0xzz"},
		{name: "too short", input: "0x0102"},
		{name: "too long", input: "0x" + strings.Repeat("00", AddressLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			require.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ed25519

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/hdevalence/ed25519consensus"
)

type (
	PublicKey  [ed25519.PublicKeySize]byte
	PrivateKey [ed25519.PrivateKeySize]byte
	Signature  [ed25519.SignatureSize]byte
)

// Signatures are verified with ZIP-215 rules (https://zips.z.cash/zip-0215)
// so every node agrees on which signatures are valid.
const (
	PublicKeyLen  = ed25519.PublicKeySize
	PrivateKeyLen = ed25519.PrivateKeySize
	// PrivateKeySeedLen is defined because ed25519.PrivateKey
	// is formatted as privateKey = seed|publicKey. We use this const
	// to extract the publicKey below.
	PrivateKeySeedLen = ed25519.SeedSize
	SignatureLen      = ed25519.SignatureSize
)

var (
	EmptyPublicKey  = PublicKey{}
	EmptyPrivateKey = PrivateKey{}
	EmptySignature  = Signature{}
)

// GeneratePrivateKey returns a Ed25519 PrivateKey.
func GeneratePrivateKey() (PrivateKey, error) {
	_, k, err := ed25519.GenerateKey(nil)
	if err != nil {
		return EmptyPrivateKey, err
	}
	return PrivateKey(k), nil
}

// PublicKey returns a PublicKey associated with the Ed25519 PrivateKey p.
// The PublicKey is the last 32 bytes of p.
func (p PrivateKey) PublicKey() PublicKey {
	return PublicKey(p[PrivateKeySeedLen:])
}

// Sign returns a valid signature for msg using pk.
func Sign(msg []byte, pk PrivateKey) Signature {
	sig := ed25519.Sign(pk[:], msg)
	return Signature(sig)
}

// Verify returns whether s is a valid signature of msg by p.
func Verify(msg []byte, p PublicKey, s Signature) bool {
	return ed25519consensus.Verify(p[:], msg, s[:])
}

func decodeHex(s string, size int, errInvalid error) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalid, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: expected %d bytes but got %d", errInvalid, size, len(b))
	}
	return b, nil
}

func (p PublicKey) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(p[:])), nil
}

func (p *PublicKey) UnmarshalText(text []byte) error {
	b, err := decodeHex(string(text), PublicKeyLen, ErrInvalidPublicKey)
	if err != nil {
		return err
	}
	copy(p[:], b)
	return nil
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(s[:])), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	b, err := decodeHex(string(text), SignatureLen, ErrInvalidSignature)
	if err != nil {
		return err
	}
	copy(s[:], b)
	return nil
}

// HexToPrivateKey accepts either the 32 byte seed or the full 64 byte key.
func HexToPrivateKey(s string) (PrivateKey, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(raw) == PrivateKeySeedLen*2 {
		b, err := decodeHex(raw, PrivateKeySeedLen, ErrInvalidPrivateKey)
		if err != nil {
			return EmptyPrivateKey, err
		}
		return PrivateKey(ed25519.NewKeyFromSeed(b)), nil
	}
	b, err := decodeHex(raw, PrivateKeyLen, ErrInvalidPrivateKey)
	if err != nil {
		return EmptyPrivateKey, err
	}
	k := PrivateKey(b)
	if PrivateKey(ed25519.NewKeyFromSeed(b[:PrivateKeySeedLen])) != k {
		return EmptyPrivateKey, fmt.Errorf("%w: public key does not match seed", ErrInvalidPrivateKey)
	}
	return k, nil
}

func (p PrivateKey) Hex() string {
	return hex.EncodeToString(p[:])
}

// LoadKey reads a hex encoded private key from [path].
func LoadKey(path string) (PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return EmptyPrivateKey, err
	}
	return HexToPrivateKey(string(b))
}

// SaveKey writes [pk] hex encoded to [path], readable only by the owner.
func SaveKey(path string, pk PrivateKey) error {
	return os.WriteFile(path, []byte(pk.Hex()), 0o600)
}

// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package crypto wraps the signing-key material the validator engine
// treats as opaque: key generation and signature verification. The
// elliptic-curve arithmetic underneath (pallas/vesta in the original
// design) is out of scope per spec.md §1 and is assumed to exist as a
// library; gnark-crypto's BN254 scalar field stands in for it here.
package crypto

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
)

// ErrInvalidSignature is returned by Verify when a signature does not
// check out against the claimed public key.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// ValidatorPrivateKey is the validator's signing key, wrapped around a
// libp2p Ed25519 key the way ilxd wraps its Nova key type.
type ValidatorPrivateKey struct {
	priv libp2pcrypto.PrivKey
}

// ValidatorPublicKey is the corresponding public half.
type ValidatorPublicKey struct {
	pub libp2pcrypto.PubKey
}

// GenerateValidatorKey produces a fresh signing keypair using r as the
// entropy source (crypto/rand.Reader in production, a deterministic
// reader in tests/harnesses).
func GenerateValidatorKey(r io.Reader) (*ValidatorPrivateKey, *ValidatorPublicKey, error) {
	priv, pub, err := libp2pcrypto.GenerateEd25519Key(r)
	if err != nil {
		return nil, nil, err
	}
	return &ValidatorPrivateKey{priv: priv}, &ValidatorPublicKey{pub: pub}, nil
}

// Sign signs msg, returning a raw signature byte string.
func (k *ValidatorPrivateKey) Sign(msg []byte) ([]byte, error) {
	return k.priv.Sign(msg)
}

// GetPublic returns the public half of the key.
func (k *ValidatorPrivateKey) GetPublic() *ValidatorPublicKey {
	pub := k.priv.GetPublic()
	return &ValidatorPublicKey{pub: pub}
}

// Bytes returns the marshaled private key.
func (k *ValidatorPrivateKey) Bytes() ([]byte, error) {
	return libp2pcrypto.MarshalPrivateKey(k.priv)
}

// UnmarshalValidatorPrivateKey reconstructs a private key from its
// marshaled form.
func UnmarshalValidatorPrivateKey(b []byte) (*ValidatorPrivateKey, error) {
	priv, err := libp2pcrypto.UnmarshalPrivateKey(b)
	if err != nil {
		return nil, err
	}
	return &ValidatorPrivateKey{priv: priv}, nil
}

// Bytes returns the marshaled public key.
func (k *ValidatorPublicKey) Bytes() ([]byte, error) {
	return libp2pcrypto.MarshalPublicKey(k.pub)
}

// UnmarshalValidatorPublicKey reconstructs a public key from its
// marshaled form.
func UnmarshalValidatorPublicKey(b []byte) (*ValidatorPublicKey, error) {
	pub, err := libp2pcrypto.UnmarshalPublicKey(b)
	if err != nil {
		return nil, err
	}
	return &ValidatorPublicKey{pub: pub}, nil
}

// Verify checks sig against msg under this public key.
func (k *ValidatorPublicKey) Verify(msg, sig []byte) error {
	ok, err := k.pub.Verify(msg, sig)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

// ToXY folds the public key's raw bytes into the pair of BN254
// scalar-field elements the Money contract treats as the pubkey's curve
// coordinates inside a coin commitment, mirroring ilxd's
// NovaPublicKey.ToXY (pubx, puby []byte) used throughout
// blockchain/harness/generate.go.
func (k *ValidatorPublicKey) ToXY() (x, y *big.Int, err error) {
	raw, err := k.pub.Raw()
	if err != nil {
		return nil, nil, err
	}
	half := len(raw) / 2
	return BytesToField(raw[:half]), BytesToField(raw[half:]), nil
}

// RandomSalt returns a fresh random 32-byte blind, used as a note's
// serial number or value/token blind.
func RandomSalt() ([32]byte, error) {
	var salt [32]byte
	_, err := rand.Read(salt[:])
	return salt, err
}

// SPDX-License-Identifier: AGPL-3.0-or-later

// Package crypto wraps the secp256k1 primitive used for sessionless
// authentication. Keys and signatures cross the wire as hex strings:
// public keys in compressed form (33 bytes, 02/03 prefix), signatures
// as DER-encoded ECDSA over the SHA-256 of the message.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/google/uuid"
)

// GenerateKeypair creates a new secp256k1 keypair, hex encoded.
func GenerateKeypair() (privKeyHex, pubKeyHex string, err error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(priv.Serialize()),
		hex.EncodeToString(priv.PubKey().SerializeCompressed()),
		nil
}

// Sign signs a message with a hex-encoded private key.
// Signatures are deterministic (RFC 6979), so signing the same message
// twice yields the same signature.
func Sign(privKeyHex string, message []byte) (string, error) {
	privBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return "", err
	}
	priv := secp256k1.PrivKeyFromBytes(privBytes)
	digest := sha256.Sum256(message)
	sig := ecdsa.Sign(priv, digest[:])
	return hex.EncodeToString(sig.Serialize()), nil
}

// Verify checks a signature against a hex-encoded compressed public key.
// Any decoding failure is treated as a failed verification.
func Verify(pubKeyHex string, message []byte, signatureHex string) bool {
	pubBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	return sig.Verify(digest[:], pub)
}

// GenerateUUID derives a fresh opaque identifier, used as the userUUID
// assigned at account creation.
func GenerateUUID() string {
	return uuid.New().String()
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package crypto

import (
	"encoding/hex"
	"strings"
	"testing"
)

func mustKeypair(t *testing.T) (string, string) {
	t.Helper()
	priv, pub, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}
	return priv, pub
}

func mustSign(t *testing.T, privHex string, message []byte) string {
	t.Helper()
	sig, err := Sign(privHex, message)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return sig
}

// =============================================================================
// CORE FUNCTIONALITY TESTS
// =============================================================================

func TestGenerateKeypair(t *testing.T) {
	priv, pub := mustKeypair(t)

	if len(priv) != 64 {
		t.Errorf("private key hex length = %d, want 64", len(priv))
	}
	// Compressed secp256k1 public key: 33 bytes = 66 hex chars, 02/03 prefix
	if len(pub) != 66 {
		t.Errorf("public key hex length = %d, want 66", len(pub))
	}
	if !strings.HasPrefix(pub, "02") && !strings.HasPrefix(pub, "03") {
		t.Errorf("public key prefix = %s, want 02 or 03", pub[:2])
	}
}

func TestGenerateKeypair_Uniqueness(t *testing.T) {
	_, pub1 := mustKeypair(t)
	_, pub2 := mustKeypair(t)

	if pub1 == pub2 {
		t.Error("two generated keypairs should not be identical")
	}
}

func TestSignAndVerify_RoundTrip(t *testing.T) {
	priv, pub := mustKeypair(t)
	message := []byte("test message for signing")

	signature := mustSign(t, priv, message)
	if signature == "" {
		t.Fatal("Sign() returned empty signature")
	}

	if !Verify(pub, message, signature) {
		t.Error("Verify() should return true for valid signature")
	}
}

func TestSign_DeterministicForSameInput(t *testing.T) {
	priv, _ := mustKeypair(t)
	message := []byte("same message")

	sig1 := mustSign(t, priv, message)
	sig2 := mustSign(t, priv, message)

	// RFC 6979 nonces - same key + message = same signature
	if sig1 != sig2 {
		t.Error("signatures should be deterministic")
	}
}

func TestSign_DifferentMessagesProduceDifferentSignatures(t *testing.T) {
	priv, _ := mustKeypair(t)

	sig1 := mustSign(t, priv, []byte("message one"))
	sig2 := mustSign(t, priv, []byte("message two"))

	if sig1 == sig2 {
		t.Error("different messages should produce different signatures")
	}
}

func TestSign_InvalidPrivateKeyHex(t *testing.T) {
	if _, err := Sign("not-hex!", []byte("test")); err == nil {
		t.Error("Sign() with invalid private key hex should return an error")
	}
}

// =============================================================================
// SECURITY TESTS - Signature Verification
// =============================================================================

func TestVerify_WrongPublicKey(t *testing.T) {
	priv1, pub1 := mustKeypair(t)
	_, pub2 := mustKeypair(t)

	message := []byte("secret message")
	signature := mustSign(t, priv1, message)

	if !Verify(pub1, message, signature) {
		t.Error("verification with correct key should pass")
	}
	if Verify(pub2, message, signature) {
		t.Error("verification with wrong public key should fail")
	}
}

func TestVerify_TamperedMessage(t *testing.T) {
	priv, pub := mustKeypair(t)

	original := []byte("original message")
	signature := mustSign(t, priv, original)

	if !Verify(pub, original, signature) {
		t.Fatal("original message should verify")
	}

	if Verify(pub, []byte("tampered message"), signature) {
		t.Error("tampered message should NOT verify with original signature")
	}

	// Even a single character change should fail
	if Verify(pub, []byte("original messagE"), signature) {
		t.Error("even slightly modified message should NOT verify")
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	priv, pub := mustKeypair(t)
	message := []byte("message")

	signature := mustSign(t, priv, message)

	// Flip bits in the last byte; the DER prefix would otherwise fail parsing
	sigBytes, _ := hex.DecodeString(signature)
	sigBytes[len(sigBytes)-1] ^= 0xFF
	tamperedSig := hex.EncodeToString(sigBytes)

	if Verify(pub, message, tamperedSig) {
		t.Error("tampered signature should NOT verify")
	}
}

func TestVerify_SignatureNotReplayable(t *testing.T) {
	priv, pub := mustKeypair(t)

	message1 := []byte("1700000000" + "02abc" + "hash-one")
	message2 := []byte("1700000001" + "02abc" + "hash-one")

	sig1 := mustSign(t, priv, message1)

	if Verify(pub, message2, sig1) {
		t.Error("signature should not be replayable on a different payload")
	}
}

// =============================================================================
// SECURITY TESTS - Malformed Input Handling
// =============================================================================

func TestVerify_MalformedPublicKeyHex(t *testing.T) {
	priv, _ := mustKeypair(t)
	message := []byte("test")
	signature := mustSign(t, priv, message)

	tests := []struct {
		name   string
		pubKey string
	}{
		{"empty string", ""},
		{"not hex", "not-valid-hex!@#$"},
		{"odd length hex", "abc"},
		{"too short", "02abcd1234"},
		{"uncompressed length", strings.Repeat("ab", 65)},
		{"invalid prefix", "05" + strings.Repeat("ab", 32)},
		{"not on curve", "02" + strings.Repeat("00", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Should return false, NOT panic
			if Verify(tt.pubKey, message, signature) {
				t.Errorf("Verify() with malformed pubKey %q should return false", tt.name)
			}
		})
	}
}

func TestVerify_MalformedSignatureHex(t *testing.T) {
	_, pub := mustKeypair(t)
	message := []byte("test")

	tests := []struct {
		name      string
		signature string
	}{
		{"empty string", ""},
		{"not hex", "not-valid-hex!@#$"},
		{"odd length hex", "abc"},
		{"not DER", "abcd1234"},
		{"truncated DER", "3044"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Verify(pub, message, tt.signature) {
				t.Errorf("Verify() with malformed signature %q should return false", tt.name)
			}
		})
	}
}

func TestVerify_EmptyMessage(t *testing.T) {
	priv, pub := mustKeypair(t)

	emptyMessage := []byte{}
	signature := mustSign(t, priv, emptyMessage)

	if !Verify(pub, emptyMessage, signature) {
		t.Error("empty message should be signable and verifiable")
	}
	if Verify(pub, []byte("not empty"), signature) {
		t.Error("signature for empty message should not verify non-empty message")
	}
}

func TestVerify_LargeMessage(t *testing.T) {
	priv, pub := mustKeypair(t)

	largeMessage := make([]byte, 1024*1024)
	for i := range largeMessage {
		largeMessage[i] = byte(i % 256)
	}

	signature := mustSign(t, priv, largeMessage)

	if !Verify(pub, largeMessage, signature) {
		t.Error("large message should be signable and verifiable")
	}
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestVerify_CaseSensitiveHex(t *testing.T) {
	priv, pub := mustKeypair(t)
	message := []byte("test")
	signature := mustSign(t, priv, message)

	// hex.DecodeString accepts both cases
	if !Verify(strings.ToLower(pub), message, signature) {
		t.Error("lowercase hex pubkey should work")
	}
	if !Verify(strings.ToUpper(pub), message, signature) {
		t.Error("uppercase hex pubkey should work")
	}
}

func TestSign_OutputIsValidHex(t *testing.T) {
	priv, _ := mustKeypair(t)
	signature := mustSign(t, priv, []byte("test"))

	decoded, err := hex.DecodeString(signature)
	if err != nil {
		t.Errorf("Sign() output is not valid hex: %v", err)
	}

	// DER-encoded ECDSA: SEQUENCE of two INTEGERs, 70-72 bytes in practice
	if len(decoded) < 8 || decoded[0] != 0x30 {
		t.Errorf("signature does not look like DER: % x", decoded[:2])
	}
}

func TestGenerateUUID(t *testing.T) {
	u1 := GenerateUUID()
	u2 := GenerateUUID()

	if len(u1) != 36 {
		t.Errorf("uuid length = %d, want 36", len(u1))
	}
	if u1 == u2 {
		t.Error("two derived identifiers should not collide")
	}
}

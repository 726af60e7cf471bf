package services

import (
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestCardCipherRoundTrip(t *testing.T) {
	cipher, err := NewCardCipher(testKey)
	if err != nil {
		t.Fatalf("NewCardCipher failed: %v", err)
	}

	sealed, err := cipher.Encrypt("4242424242424242")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if strings.Contains(sealed, "4242") {
		t.Fatal("Ciphertext leaks plaintext digits")
	}

	opened, err := cipher.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if opened != "4242424242424242" {
		t.Fatalf("Round trip mismatch: %q", opened)
	}
}

func TestCardCipherUniqueNonces(t *testing.T) {
	cipher, _ := NewCardCipher(testKey)

	a, _ := cipher.Encrypt("4242424242424242")
	b, _ := cipher.Encrypt("4242424242424242")
	if a == b {
		t.Fatal("Two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestCardCipherRejectsBadKeys(t *testing.T) {
	if _, err := NewCardCipher("not-hex"); err == nil {
		t.Fatal("Expected error for non-hex key")
	}
	if _, err := NewCardCipher("abcd"); err == nil {
		t.Fatal("Expected error for short key")
	}
}

func TestCardCipherRejectsTampering(t *testing.T) {
	cipher, _ := NewCardCipher(testKey)
	other, _ := NewCardCipher("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")

	sealed, _ := cipher.Encrypt("4242424242424242")
	if _, err := other.Decrypt(sealed); err == nil {
		t.Fatal("Decrypt with wrong key succeeded")
	}
	if _, err := cipher.Decrypt("AAAA"); err == nil {
		t.Fatal("Decrypt of garbage succeeded")
	}
}

func TestDigestCVVIsNotTheCVV(t *testing.T) {
	digest := DigestCVV("123")
	if digest == "123" || len(digest) != 64 {
		t.Fatalf("Unexpected digest: %q", digest)
	}
	if DigestCVV("123") != digest {
		t.Fatal("Digest is not deterministic")
	}
}

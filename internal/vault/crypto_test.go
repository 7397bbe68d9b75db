package vault

import (
	"bytes"
	"crypto/x509"
	"errors"
	"strings"
	"testing"
)

func TestSealOpen(t *testing.T) {
	key := []byte("thisis32byteslongsecretkey123456")
	plaintext := []byte(`[{"id":"1","title":"Login button"}]`)

	sealed, err := Seal(plaintext, key)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, []byte("Login")) {
		t.Fatal("sealed output leaks plaintext")
	}

	opened, err := Open(sealed, key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Expected %s, got %s", plaintext, opened)
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	key1 := []byte("thisis32byteslongsecretkey123456")
	key2 := []byte("another32byteslongsecretkey65432")

	sealed, err := Seal([]byte("secret"), key1)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := Open(sealed, key2); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Expected ErrDecrypt, got %v", err)
	}
}

func TestInvalidKeySize(t *testing.T) {
	if _, err := Seal([]byte("test"), []byte("shortkey")); err == nil {
		t.Error("Seal should fail with a short key")
	}
}

func TestOpenTooShort(t *testing.T) {
	key := []byte("thisis32byteslongsecretkey123456")
	if _, err := Open([]byte("abcd"), key); err == nil {
		t.Error("Open should fail on truncated data")
	}
	if _, err := Open([]byte("not-hex"), key); err == nil {
		t.Error("Open should fail on non-hex data")
	}
}

func TestParseKey(t *testing.T) {
	good := strings.Repeat("ab", KeySize)
	key, err := ParseKey(good)
	if err != nil || len(key) != KeySize {
		t.Fatalf("ParseKey(%q) = %d bytes, %v", good, len(key), err)
	}
	if _, err := ParseKey("abcd"); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := ParseKey("zz"); err == nil {
		t.Error("expected error for non-hex key")
	}
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert failed: %v", err)
	}
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("certificate does not parse: %v", err)
	}
	if parsed.DNSNames[0] != "localhost" {
		t.Errorf("unexpected DNS names %v", parsed.DNSNames)
	}
}

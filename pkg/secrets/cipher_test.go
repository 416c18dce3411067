package secrets

import "testing"

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher("test-passphrase")
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	token, err := cipher.Encrypt("platform-password-123")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if token == "platform-password-123" {
		t.Fatal("expected ciphertext to differ from plaintext")
	}

	plain, err := cipher.Decrypt(token)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if plain != "platform-password-123" {
		t.Fatalf("round trip mismatch: got %q", plain)
	}
}

func TestCipherRejectsEmptyKey(t *testing.T) {
	if _, err := NewCipher(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestCipherRejectsWrongKey(t *testing.T) {
	a, _ := NewCipher("key-a")
	b, _ := NewCipher("key-b")

	token, err := a.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := b.Decrypt(token); err == nil {
		t.Fatal("expected decryption with wrong key to fail")
	}
}

func TestCipherRejectsGarbage(t *testing.T) {
	c, _ := NewCipher("key")
	if _, err := c.Decrypt("not-base64!!!"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := c.Decrypt("YWJj"); err == nil {
		t.Fatal("expected error for truncated token")
	}
}

package cipher

import (
	"strings"
	"testing"
)

const (
	testKey = "a3f1c2d4e5b6978812345678901234567890abcdefabcdef0123456789abcdef"
	testIV  = "0102030405060708090a0b0c0d0e0f10"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New(testKey, testIV)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_InvalidMaterial(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		iv      string
		wantErr error
	}{
		{"short key", "abcd", testIV, ErrInvalidKey},
		{"non-hex key", strings.Repeat("zz", 32), testIV, ErrInvalidKey},
		{"short iv", testKey, "abcd", ErrInvalidIV},
		{"non-hex iv", testKey, strings.Repeat("zz", 16), ErrInvalidIV},
		{"empty key", "", testIV, ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.key, tt.iv); err != tt.wantErr {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	tests := []string{
		"",
		"11112222",
		"a",
		"exactly-32-bytes-of-plaintext!!!",
		strings.Repeat("x", 31),
		strings.Repeat("x", 33),
		strings.Repeat("long plaintext ", 100),
		"비밀 메모입니다", // multi-byte UTF-8
		"tabs\tand\nnewlines\x00and nul",
	}

	for _, plaintext := range tests {
		enc, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", plaintext, err)
		}
		if enc == plaintext && plaintext != "" {
			t.Errorf("Encrypt(%q) returned plaintext unchanged", plaintext)
		}

		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt(Encrypt(%q)) error = %v", plaintext, err)
		}
		if dec != plaintext {
			t.Errorf("round trip = %q, want %q", dec, plaintext)
		}
	}
}

func TestEncrypt_Deterministic(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("11112222")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	second, err := c.Encrypt("11112222")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Fixed key and IV: identical plaintexts must produce identical
	// ciphertexts, otherwise exact-match filtering breaks.
	if first != second {
		t.Errorf("Encrypt() not deterministic: %q != %q", first, second)
	}

	other, err := c.Encrypt("11112223")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if other == first {
		t.Error("different plaintexts produced identical ciphertexts")
	}
}

func TestDecrypt_InvalidInput(t *testing.T) {
	c := newTestCipher(t)

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "not!!!base64"},
		{"empty", ""},
		{"three bytes", "YWJj"},
		{"seventeen bytes", "AAAAAAAAAAAAAAAAAAAAAAA="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.input); err == nil {
				t.Errorf("Decrypt(%q) expected error, got nil", tt.input)
			}
		})
	}
}

func TestLenient_PassthroughOnFailure(t *testing.T) {
	c := newTestCipher(t)

	// Lenient decrypt of a value that was never encrypted returns it unchanged.
	if got := c.DecryptLenient("plain legacy value"); got != "plain legacy value" {
		t.Errorf("DecryptLenient() = %q, want passthrough", got)
	}

	// Lenient encrypt of a valid value behaves exactly like Encrypt.
	strict, err := c.Encrypt("hello")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if got := c.EncryptLenient("hello"); got != strict {
		t.Errorf("EncryptLenient() = %q, want %q", got, strict)
	}
}

func TestPad_Boundaries(t *testing.T) {
	for _, n := range []int{0, 1, 31, 32, 33, 64} {
		padded := pad(make([]byte, n))
		if len(padded)%blockSize != 0 {
			t.Errorf("pad(%d bytes) length %d not a multiple of %d", n, len(padded), blockSize)
		}
		if len(padded) == n {
			t.Errorf("pad(%d bytes) added no padding", n)
		}
		got, err := unpad(padded)
		if err != nil {
			t.Fatalf("unpad(pad(%d bytes)) error = %v", n, err)
		}
		if len(got) != n {
			t.Errorf("unpad(pad(%d bytes)) length = %d", n, len(got))
		}
	}
}

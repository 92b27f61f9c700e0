package token

import (
	"errors"
	"strings"
	"testing"
)

func TestHashSHA256Hex_KnownVector(t *testing.T) {
	t.Parallel()

	got := HashSHA256Hex("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("HashSHA256Hex(abc)=%q want=%q", got, want)
	}
}

func TestShortHashHex_Length(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n    int
		want int
	}{
		{n: 32, want: 32},
		{n: 1, want: 1},
		{n: 0, want: 64},
		{n: 100, want: 64},
	}
	for _, tc := range cases {
		if got := ShortHashHex("x", tc.n); len(got) != tc.want {
			t.Fatalf("ShortHashHex(x, %d) len=%d want=%d", tc.n, len(got), tc.want)
		}
	}
	if !strings.HasPrefix(HashSHA256Hex("x"), ShortHashHex("x", 32)) {
		t.Fatalf("short hash must be a prefix of the full digest")
	}
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv(SigningSecretEnvKey, "")
	if _, err := SecretFromEnv(MinSecretBytes); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}

	t.Setenv(SigningSecretEnvKey, "short")
	if _, err := SecretFromEnv(MinSecretBytes); !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}

	secret := "  " + strings.Repeat("k", MinSecretBytes) + "  "
	t.Setenv(SigningSecretEnvKey, secret)
	b, err := SecretFromEnv(MinSecretBytes)
	if err != nil {
		t.Fatalf("SecretFromEnv: %v", err)
	}
	if len(b) != MinSecretBytes {
		t.Fatalf("expected trimmed secret of %d bytes, got %d", MinSecretBytes, len(b))
	}
}

package common

import (
	"errors"
	"testing"
)

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- GenerateRandByteArray ----------

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	buf := GenerateRandByteArray(n)
	if buf == nil {
		t.Fatalf("expected non-nil slice")
	}
	if len(buf) != n {
		t.Fatalf("expected length %d, got %d", n, len(buf))
	}
}

func TestGenerateRandByteArray_EntropyHint(t *testing.T) {
	const n = 32
	a := GenerateRandByteArray(n)
	b := GenerateRandByteArray(n)

	identical := true
	for i := range a {
		if a[i] != b[i] {
			identical = false
			break
		}
	}
	if identical {
		t.Logf("warning: two GenerateRandByteArray(%d) results are identical; extremely unlikely", n)
	}
}

// ---------- token errors ----------

func TestTokenErrors_MatchInvalidToken(t *testing.T) {
	for _, err := range []error{ErrTokenMalformed, ErrTokenSignature, ErrTokenExpired, ErrTokenRevoked, ErrTokenWrongType, ErrTokenSubject} {
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%v must match ErrInvalidToken", err)
		}
	}
	if errors.Is(ErrTokenExpired, ErrTokenRevoked) {
		t.Fatal("expired must not match revoked")
	}
}

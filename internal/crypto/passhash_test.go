package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// cheap parameters keep the suite fast; production uses DefaultParams.
var testParams = Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func TestHashSecret_EncodesParamsAndSalts(t *testing.T) {
	t.Parallel()

	h1, err := HashSecret("p@ssw0rd", testParams)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if !strings.HasPrefix(h1, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding: %s", h1)
	}
	if strings.Contains(h1, "p@ssw0rd") {
		t.Fatalf("digest leaks the secret")
	}

	h2, err := HashSecret("p@ssw0rd", testParams)
	if err != nil {
		t.Fatalf("HashSecret(2): %v", err)
	}
	if h1 == h2 {
		t.Fatalf("same secret must hash differently under fresh salts")
	}
}

func TestVerifySecret(t *testing.T) {
	t.Parallel()

	enc, err := HashSecret("correct horse battery staple", testParams)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	ok, err := VerifySecret("correct horse battery staple", enc)
	if err != nil || !ok {
		t.Fatalf("VerifySecret correct: ok=%v err=%v", ok, err)
	}
	ok, err = VerifySecret("wrong", enc)
	if err != nil || ok {
		t.Fatalf("VerifySecret wrong: ok=%v err=%v", ok, err)
	}
	ok, err = VerifySecret("", enc)
	if err != nil || ok {
		t.Fatalf("VerifySecret empty: ok=%v err=%v", ok, err)
	}
}

func TestVerifySecret_Malformed(t *testing.T) {
	t.Parallel()

	for _, enc := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=0,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$",
	} {
		if _, err := VerifySecret("x", enc); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("VerifySecret(%q): want ErrMalformedHash, got %v", enc, err)
		}
	}
}

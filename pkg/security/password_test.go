package security

import (
	"strings"
	"testing"

	"github.com/vinavax/vinavax-backend/pkg/config"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("matkhau-123", testPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword("matkhau-123", hash)
	if err != nil {
		t.Fatalf("verify password: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = VerifyPassword("khac-roi", hash)
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword("", testPasswordConfig()); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"plainhash",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=99$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$%%%$aGFzaA",
	}
	for _, encoded := range cases {
		if _, err := VerifyPassword("x", encoded); err == nil {
			t.Fatalf("expected ErrInvalidHash for %q", encoded)
		}
	}
}

func TestHashPasswordClampsUnsafeParams(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	params, _, _, err := decodeHash(hash)
	if err != nil {
		t.Fatalf("decode hash: %v", err)
	}
	if params.Memory < 8 || params.Time < 1 || params.Parallelism < 1 {
		t.Fatalf("params not clamped: %+v", params)
	}
	if params.SaltLen < 8 || params.KeyLen < 16 {
		t.Fatalf("salt/key lengths not clamped: %+v", params)
	}
}

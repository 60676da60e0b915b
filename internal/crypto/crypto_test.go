package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"sml/internal/crypto"
	"sml/internal/domain"
)

func TestDH_Agreement(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bPriv, bPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	ab, err := crypto.DH(aPriv, bPub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	ba, err := crypto.DH(bPriv, aPub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	if ab != ba {
		t.Fatal("shared secrets differ")
	}
}

func TestPrivateFromSecret_Deterministic(t *testing.T) {
	secret := bytes.Repeat([]byte{0x7f}, crypto.KeyBytes)
	p1, err := crypto.PrivateFromSecret(secret)
	if err != nil {
		t.Fatalf("PrivateFromSecret: %v", err)
	}
	p2, err := crypto.PrivateFromSecret(secret)
	if err != nil {
		t.Fatalf("PrivateFromSecret: %v", err)
	}
	if p1 != p2 {
		t.Fatal("same secret produced different keys")
	}

	if _, err := crypto.PrivateFromSecret(secret[:16]); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("short secret: got %v, want ErrInvalidInput", err)
	}
}

func TestChainStep_DistinctOutputs(t *testing.T) {
	ck := bytes.Repeat([]byte{0x11}, crypto.KeyBytes)
	next, mk := crypto.ChainStep(ck)
	if bytes.Equal(next, mk) {
		t.Fatal("chain key and message key must differ")
	}
	if bytes.Equal(next, ck) || bytes.Equal(mk, ck) {
		t.Fatal("outputs must differ from the input chain key")
	}

	next2, mk2 := crypto.ChainStep(ck)
	if !bytes.Equal(next, next2) || !bytes.Equal(mk, mk2) {
		t.Fatal("chain step must be deterministic")
	}
}

func TestRootStep_AdvancesBothOutputs(t *testing.T) {
	rk := bytes.Repeat([]byte{0x22}, crypto.KeyBytes)
	dh := bytes.Repeat([]byte{0x33}, crypto.KeyBytes)

	rk1, ck1 := crypto.RootStep(rk, dh)
	if len(rk1) != crypto.KeyBytes || len(ck1) != crypto.KeyBytes {
		t.Fatalf("bad output sizes %d/%d", len(rk1), len(ck1))
	}
	if bytes.Equal(rk1, rk) || bytes.Equal(rk1, ck1) {
		t.Fatal("root step outputs must be fresh and distinct")
	}

	// A different DH input must reach a different root.
	rk2, _ := crypto.RootStep(rk, bytes.Repeat([]byte{0x34}, crypto.KeyBytes))
	if bytes.Equal(rk1, rk2) {
		t.Fatal("different DH inputs produced the same root key")
	}
}

func TestSealOpen_RoundTripAndTamper(t *testing.T) {
	key := bytes.Repeat([]byte{0x44}, crypto.KeyBytes)
	ad := []byte("header")

	ct, err := crypto.Seal(key, 7, []byte("payload"), ad)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	pt, err := crypto.Open(key, 7, ct, ad)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "payload" {
		t.Fatalf("got %q", pt)
	}

	// Wrong counter, wrong AD, flipped bit: all must fail authentication.
	if _, err := crypto.Open(key, 8, ct, ad); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("wrong counter: got %v", err)
	}
	if _, err := crypto.Open(key, 7, ct, []byte("other")); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("wrong ad: got %v", err)
	}
	ct[0] ^= 1
	if _, err := crypto.Open(key, 7, ct, ad); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("tampered: got %v", err)
	}
}

func TestSealToOpenFrom(t *testing.T) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	ephPub, box, err := crypto.SealTo(pub, []byte("leaf secret"))
	if err != nil {
		t.Fatalf("SealTo: %v", err)
	}
	pt, err := crypto.OpenFrom(priv, ephPub, box)
	if err != nil {
		t.Fatalf("OpenFrom: %v", err)
	}
	if string(pt) != "leaf secret" {
		t.Fatalf("got %q", pt)
	}

	// Another key pair must not open it.
	otherPriv, _, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	if _, err := crypto.OpenFrom(otherPriv, ephPub, box); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("wrong recipient: got %v", err)
	}
}

func TestEncryptDecryptSecret(t *testing.T) {
	salt, err := crypto.RandomBytes(crypto.SaltBytes)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	nonce, ct, err := crypto.EncryptSecret("hunter2", []byte("state"), salt)
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	pt, err := crypto.DecryptSecret("hunter2", salt, nonce, ct)
	if err != nil {
		t.Fatalf("DecryptSecret: %v", err)
	}
	if string(pt) != "state" {
		t.Fatalf("got %q", pt)
	}

	if _, err := crypto.DecryptSecret("wrong", salt, nonce, ct); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("wrong passphrase: got %v", err)
	}
}

func TestFingerprint_Stable(t *testing.T) {
	id, err := crypto.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	fp1 := crypto.Fingerprint(id.EdPub.Slice())
	fp2 := crypto.Fingerprint(id.EdPub.Slice())
	if fp1 != fp2 {
		t.Fatal("fingerprint not deterministic")
	}
	if len(fp1) != 64 {
		t.Fatalf("fingerprint length %d, want 64 hex chars", len(fp1))
	}
}

package ratchet_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"sml/internal/crypto"
	"sml/internal/domain"
	"sml/internal/protocol/ratchet"
)

// makePair seeds both ends of a session the way X3DH would: a shared root
// key, the responder holding its signed pre-key pair, the initiator holding
// the matching public.
func makePair(t *testing.T, maxSkip int) (a, b *ratchet.State) {
	t.Helper()
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	rootA := bytes.Repeat([]byte{0x42}, 32)
	rootB := bytes.Repeat([]byte{0x42}, 32)

	a, err = ratchet.NewInitiator(rootA, spkPub, maxSkip)
	if err != nil {
		t.Fatalf("NewInitiator: %v", err)
	}
	b, err = ratchet.NewResponder(rootB, spkPriv, spkPub, maxSkip)
	if err != nil {
		t.Fatalf("NewResponder: %v", err)
	}
	return a, b
}

func send(t *testing.T, from *ratchet.State, msg string) (domain.RatchetHeader, []byte) {
	t.Helper()
	h, ct, err := from.Encrypt(nil, []byte(msg))
	if err != nil {
		t.Fatalf("Encrypt(%q): %v", msg, err)
	}
	return h, ct
}

func recv(t *testing.T, to *ratchet.State, h domain.RatchetHeader, ct []byte, want string) {
	t.Helper()
	pt, err := to.Decrypt(nil, h, ct)
	if err != nil {
		t.Fatalf("Decrypt(%q): %v", want, err)
	}
	if string(pt) != want {
		t.Fatalf("got %q, want %q", pt, want)
	}
}

func TestRoundTrip(t *testing.T) {
	a, b := makePair(t, 0)
	h, ct := send(t, a, "hi")
	recv(t, b, h, ct, "hi")
}

func TestPingPong(t *testing.T) {
	a, b := makePair(t, 0)

	// Several full DH ratchet turns.
	for i := 0; i < 5; i++ {
		msg := fmt.Sprintf("a->b %d", i)
		h, ct := send(t, a, msg)
		recv(t, b, h, ct, msg)

		msg = fmt.Sprintf("b->a %d", i)
		h, ct = send(t, b, msg)
		recv(t, a, h, ct, msg)
	}
}

func TestMultipleMessagesPerChain(t *testing.T) {
	a, b := makePair(t, 0)
	for i := 0; i < 4; i++ {
		msg := fmt.Sprintf("msg %d", i)
		h, ct := send(t, a, msg)
		recv(t, b, h, ct, msg)
	}
	h, ct := send(t, b, "reply")
	recv(t, a, h, ct, "reply")
	for i := 4; i < 8; i++ {
		msg := fmt.Sprintf("msg %d", i)
		h, ct := send(t, a, msg)
		recv(t, b, h, ct, msg)
	}
}

func TestOutOfOrderWithinChain(t *testing.T) {
	a, b := makePair(t, 0)

	type env struct {
		h  domain.RatchetHeader
		ct []byte
	}
	envs := make([]env, 5)
	for i := range envs {
		h, ct := send(t, a, fmt.Sprintf("msg %d", i))
		envs[i] = env{h, ct}
	}

	// Deliver 3, 1, 5, 2, 4 (indices 2, 0, 4, 1, 3).
	for _, i := range []int{2, 0, 4, 1, 3} {
		recv(t, b, envs[i].h, envs[i].ct, fmt.Sprintf("msg %d", i))
	}

	// Replaying an already-consumed envelope must fail and change nothing.
	if _, err := b.Decrypt(nil, envs[2].h, envs[2].ct); err == nil {
		t.Fatal("replay accepted")
	}
	h, ct := send(t, a, "after")
	recv(t, b, h, ct, "after")
}

func TestOutOfOrderAcrossDHStep(t *testing.T) {
	a, b := makePair(t, 0)

	h0, ct0 := send(t, a, "early")
	h1, ct1 := send(t, a, "on time")
	recv(t, b, h1, ct1, "on time")

	// B answers, A ratchets, more traffic flows.
	h2, ct2 := send(t, b, "reply")
	recv(t, a, h2, ct2, "reply")
	h3, ct3 := send(t, a, "new chain")
	recv(t, b, h3, ct3, "new chain")

	// The straggler from the retired chain still opens from the cache.
	recv(t, b, h0, ct0, "early")
}

func TestReplayAfterDHStep(t *testing.T) {
	a, b := makePair(t, 0)

	h0, ct0 := send(t, a, "first")
	recv(t, b, h0, ct0, "first")

	h1, ct1 := send(t, b, "reply")
	recv(t, a, h1, ct1, "reply")

	// Replay of the consumed first message, now from a retired chain.
	if _, err := b.Decrypt(nil, h0, ct0); err == nil {
		t.Fatal("replay accepted")
	}
}

func TestStaleWithinChain(t *testing.T) {
	a, b := makePair(t, 0)
	h0, ct0 := send(t, a, "zero")
	h1, ct1 := send(t, a, "one")
	recv(t, b, h0, ct0, "zero")
	recv(t, b, h1, ct1, "one")

	if _, err := b.Decrypt(nil, h0, ct0); !errors.Is(err, domain.ErrStaleOrReplayedMessage) {
		t.Fatalf("got %v, want ErrStaleOrReplayedMessage", err)
	}
}

func TestTamperLeavesStateIntact(t *testing.T) {
	a, b := makePair(t, 0)

	h0, ct0 := send(t, a, "genuine")
	tampered := append([]byte(nil), ct0...)
	tampered[0] ^= 1

	if _, err := b.Decrypt(nil, h0, tampered); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("got %v, want ErrAuthenticationFailed", err)
	}

	// The genuine envelope must still decrypt, as must everything after it.
	recv(t, b, h0, ct0, "genuine")
	h1, ct1 := send(t, a, "next")
	recv(t, b, h1, ct1, "next")
}

func TestTamperedHeaderRejected(t *testing.T) {
	a, b := makePair(t, 0)
	h, ct := send(t, a, "payload")

	bad := h
	bad.MessageIndex = 1
	if _, err := b.Decrypt(nil, bad, ct); err == nil {
		t.Fatal("tampered header accepted")
	}
	recv(t, b, h, ct, "payload")
}

func TestExtraADBound(t *testing.T) {
	a, b := makePair(t, 0)
	h, ct, err := a.Encrypt([]byte("prefix"), []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := b.Decrypt([]byte("other"), h, ct); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("got %v, want ErrAuthenticationFailed", err)
	}
	pt, err := b.Decrypt([]byte("prefix"), h, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "payload" {
		t.Fatalf("got %q", pt)
	}
}

func TestSkipLimit(t *testing.T) {
	a, b := makePair(t, 4)

	// First message establishes B's receive chain.
	h, ct := send(t, a, "open")
	recv(t, b, h, ct, "open")

	var last domain.RatchetHeader
	var lastCT []byte
	for i := 0; i < 6; i++ {
		last, lastCT = send(t, a, "burst")
	}
	// Gap of 5 against a limit of 4.
	if _, err := b.Decrypt(nil, last, lastCT); !errors.Is(err, domain.ErrResourceExhausted) {
		t.Fatalf("got %v, want ErrResourceExhausted", err)
	}
}

func TestWipe(t *testing.T) {
	a, b := makePair(t, 0)
	h, ct := send(t, a, "hello")
	recv(t, b, h, ct, "hello")

	b.Wipe()
	if b.RootKey != nil || b.SendChainKey != nil || b.RecvChainKey != nil {
		t.Fatal("secrets survive Wipe")
	}
	if b.Skipped.Len() != 0 {
		t.Fatal("skipped keys survive Wipe")
	}
}

package authinfra_test

import (
	"context"
	"testing"
	"time"

	"github.com/veridian-labs/veridian/pkg/auth/authinfra"
)

func TestBcryptPasswordService_RoundTrip(t *testing.T) {
	svc := authinfra.NewBcryptPasswordService(4)

	hash, err := svc.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !svc.Compare(hash, "correct horse battery") {
		t.Fatal("expected the password to match its hash")
	}
	if svc.Compare(hash, "wrong password") {
		t.Fatal("expected a wrong password to fail")
	}
}

func TestBcryptPasswordService_InvalidCostFallsBack(t *testing.T) {
	svc := authinfra.NewBcryptPasswordService(99)
	if _, err := svc.Hash("correct horse battery"); err != nil {
		t.Fatalf("Hash with clamped cost: %v", err)
	}
}

func TestMemoryStateStore_ConsumeIsOneShot(t *testing.T) {
	store := authinfra.NewMemoryStateStore()
	ctx := context.Background()

	if err := store.Save(ctx, "nonce", "google", time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	provider, found, err := store.Consume(ctx, "nonce")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !found || provider != "google" {
		t.Fatalf("expected (google, true), got (%q, %v)", provider, found)
	}

	if _, found, _ := store.Consume(ctx, "nonce"); found {
		t.Fatal("expected the nonce to be consumed")
	}
}

func TestMemoryStateStore_UnknownState(t *testing.T) {
	store := authinfra.NewMemoryStateStore()

	if _, found, _ := store.Consume(context.Background(), "never-saved"); found {
		t.Fatal("expected an unknown state to be not found")
	}
}

func TestMemoryStateStore_ExpiredState(t *testing.T) {
	store := authinfra.NewMemoryStateStore()
	ctx := context.Background()

	store.Save(ctx, "nonce", "google", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, found, _ := store.Consume(ctx, "nonce"); found {
		t.Fatal("expected an expired state to be not found")
	}
}

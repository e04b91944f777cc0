package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/spendwise/internal/remote/memory"
)

func TestProvisionAndLookup(t *testing.T) {
	p := NewProvisioner(memory.New())
	ctx := context.Background()

	profile := Profile{
		UID:         "uid-1",
		DisplayName: "Alex",
		Email:       "alex@example.com",
		CreatedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := p.Provision(ctx, profile); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	got, err := p.Lookup(ctx, "uid-1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.DisplayName != "Alex" || got.Email != "alex@example.com" {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if !got.CreatedAt.Equal(profile.CreatedAt) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, profile.CreatedAt)
	}
}

func TestProvision_DuplicateName(t *testing.T) {
	p := NewProvisioner(memory.New())
	ctx := context.Background()

	if err := p.Provision(ctx, Profile{UID: "uid-1", DisplayName: "Alex", Email: "a@example.com"}); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	err := p.Provision(ctx, Profile{UID: "uid-2", DisplayName: "alex", Email: "b@example.com"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestProvision_EmailExists(t *testing.T) {
	p := NewProvisioner(memory.New())
	ctx := context.Background()

	if err := p.Provision(ctx, Profile{UID: "uid-1", DisplayName: "Alex", Email: "a@example.com"}); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	err := p.Provision(ctx, Profile{UID: "uid-2", DisplayName: "Sam", Email: "A@example.com"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestProvision_SameUIDReprovisions(t *testing.T) {
	p := NewProvisioner(memory.New())
	ctx := context.Background()

	if err := p.Provision(ctx, Profile{UID: "uid-1", DisplayName: "Alex", Email: "a@example.com"}); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	// Re-provisioning the same uid with the same name is not a duplicate.
	if err := p.Provision(ctx, Profile{UID: "uid-1", DisplayName: "Alex", Email: "a@example.com"}); err != nil {
		t.Fatalf("re-Provision: %v", err)
	}
}

func TestLookup_UidNotFound(t *testing.T) {
	p := NewProvisioner(memory.New())

	_, err := p.Lookup(context.Background(), "missing")
	if !errors.Is(err, ErrUidNotFound) {
		t.Fatalf("expected ErrUidNotFound, got %v", err)
	}
}

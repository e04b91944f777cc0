// Package identity provisions user profiles in the remote users collection.
// The sync engine never touches this collection; profiles only partition the
// per-user document tree.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/spendwise/internal/remote"
)

var (
	ErrDuplicateName = errors.New("identity: display name already taken")
	ErrEmailExists   = errors.New("identity: email already registered")
	ErrUidNotFound   = errors.New("identity: uid not found")
)

// Profile is one user document. UID comes from the external auth
// collaborator and doubles as the partition key for all synced collections.
type Profile struct {
	UID         string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}

// Provisioner manages profiles over the remote store.
type Provisioner struct {
	remote remote.Store
}

func NewProvisioner(rs remote.Store) *Provisioner {
	return &Provisioner{remote: rs}
}

// Provision registers a profile, rejecting duplicate display names and
// emails. Matching is case-insensitive.
func (p *Provisioner) Provision(ctx context.Context, profile Profile) error {
	if profile.UID == "" {
		return fmt.Errorf("identity.Provision: uid is required")
	}

	docs, err := p.remote.GetAll(ctx, remote.CollectionUsers)
	if err != nil {
		return fmt.Errorf("identity.Provision: listing users: %w", err)
	}
	for _, doc := range docs {
		if doc.ID == profile.UID {
			continue
		}
		if name, ok := doc.Fields["displayName"].(string); ok && strings.EqualFold(name, profile.DisplayName) {
			return fmt.Errorf("identity.Provision: %w", ErrDuplicateName)
		}
		if email, ok := doc.Fields["email"].(string); ok && strings.EqualFold(email, profile.Email) {
			return fmt.Errorf("identity.Provision: %w", ErrEmailExists)
		}
	}

	fields := map[string]any{
		"displayName": profile.DisplayName,
		"email":       profile.Email,
		"createdAt":   profile.CreatedAt.UTC().UnixMilli(),
	}
	// The uid is the document key, so Update doubles as an upsert here.
	if err := p.remote.Update(ctx, remote.CollectionUsers, profile.UID, fields); err != nil {
		return fmt.Errorf("identity.Provision: writing profile: %w", err)
	}
	return nil
}

// Lookup fetches the profile for a uid.
func (p *Provisioner) Lookup(ctx context.Context, uid string) (Profile, error) {
	docs, err := p.remote.GetAll(ctx, remote.CollectionUsers)
	if err != nil {
		return Profile{}, fmt.Errorf("identity.Lookup: listing users: %w", err)
	}
	for _, doc := range docs {
		if doc.ID != uid {
			continue
		}
		profile := Profile{UID: uid}
		if name, ok := doc.Fields["displayName"].(string); ok {
			profile.DisplayName = name
		}
		if email, ok := doc.Fields["email"].(string); ok {
			profile.Email = email
		}
		if millis, ok := doc.Fields["createdAt"].(int64); ok {
			profile.CreatedAt = time.UnixMilli(millis).UTC()
		}
		return profile, nil
	}
	return Profile{}, fmt.Errorf("identity.Lookup %s: %w", uid, ErrUidNotFound)
}

// Package directory is a read-only user identity store backing the mock
// users service that the gateway talks to in local and test deployments.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transfer-saga/internal/api"
	"github.com/josh-kwaku/transfer-saga/internal/domain"
)

type Directory struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*domain.UserProfile
}

func New(profiles ...domain.UserProfile) *Directory {
	d := &Directory{profiles: make(map[uuid.UUID]*domain.UserProfile, len(profiles))}
	for i := range profiles {
		p := profiles[i]
		d.profiles[p.ID] = &p
	}
	return d
}

// Decode reads a JSON array of profiles in the wire format.
func Decode(r io.Reader) (*Directory, error) {
	var raw []api.UserProfile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("directory.Decode: %w", err)
	}

	profiles := make([]domain.UserProfile, 0, len(raw))
	for _, p := range raw {
		if p.ID == uuid.Nil {
			return nil, fmt.Errorf("directory.Decode: profile %q has no id", p.Username)
		}
		profiles = append(profiles, *p.Domain())
	}
	return New(profiles...), nil
}

func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("directory.Load: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func (d *Directory) GetProfile(_ context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[id]
	if !ok {
		return nil, fmt.Errorf("GetProfile: %w", domain.ErrUserNotFound)
	}
	out := *p
	return &out, nil
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.profiles)
}

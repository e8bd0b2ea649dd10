// Package service implements the project progress workflows on top of the
// storage contracts: template seeding, step access, legacy field adaptation,
// stage derivation, and save-time synchronization.
package service

import (
	"time"

	"github.com/kensetsu-cloud/anken/internal/projects/storage"
)

// Service coordinates the progress state model for projects.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// New creates a progress service backed by the given store.
func New(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// NewWithClock creates a service with a fixed clock, for tests.
func NewWithClock(store storage.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

package profile

import (
	"errors"

	"github.com/bedasa/dataport/sdk"
)

// ErrNotFound is returned when a profile id is not in the store
var ErrNotFound = errors.New("profile not found")

// Store persists export profiles and their last run results
type Store interface {
	// Get returns the profile with id
	Get(id int) (*sdk.Profile, error)
	// List returns all stored profiles
	List() ([]*sdk.Profile, error)
	// Update writes the profile back to storage
	Update(p *sdk.Profile) error
	// Close flushes and releases the store
	Close() error
}

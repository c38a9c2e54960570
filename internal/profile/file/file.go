package file

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/bedasa/dataport/internal/profile"
	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/fileutil"
	pjson "github.com/pinpt/go-common/v10/json"
)

// Store is a simple file backed profile store
type Store struct {
	fn       string
	profiles map[string]*sdk.Profile
	mu       sync.RWMutex
}

var _ profile.Store = (*Store)(nil)

func getKey(id int) string {
	return strconv.Itoa(id)
}

// Get returns the profile with id
func (f *Store) Get(id int) (*sdk.Profile, error) {
	f.mu.RLock()
	p := f.profiles[getKey(id)]
	f.mu.RUnlock()
	if p == nil {
		return nil, profile.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// List returns all stored profiles ordered by id
func (f *Store) List() ([]*sdk.Profile, error) {
	f.mu.RLock()
	out := make([]*sdk.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		cp := *p
		out = append(out, &cp)
	}
	f.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update writes the profile back to storage
func (f *Store) Update(p *sdk.Profile) error {
	cp := *p
	f.mu.Lock()
	f.profiles[getKey(p.ID)] = &cp
	f.mu.Unlock()
	return f.Flush()
}

// Flush any pending data to storage
func (f *Store) Flush() error {
	f.mu.Lock()
	err := ioutil.WriteFile(f.fn, []byte(pjson.Stringify(f.profiles)), 0600)
	f.mu.Unlock()
	return err
}

// Close the store and sync data to the profile file
func (f *Store) Close() error {
	return f.Flush()
}

// New will create a new profile store backed by a file
func New(fn string) (*Store, error) {
	kv := make(map[string]*sdk.Profile)
	var of *os.File
	var err error

	if fileutil.FileExists(fn) {
		of, err = os.Open(fn)
	} else {
		if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
			return nil, err
		}
		of, err = os.Create(fn)
	}
	if err != nil {
		return nil, err
	}
	defer of.Close()
	if err := json.NewDecoder(of).Decode(&kv); err != nil && err != io.EOF {
		return nil, err
	}

	return &Store{
		fn:       fn,
		profiles: kv,
	}, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/bedasa/dataport/internal/profile"
	"github.com/bedasa/dataport/sdk"
	"github.com/go-redis/redis/v8"
	pjson "github.com/pinpt/go-common/v10/json"
)

// Store is a Redis backed profile store
type Store struct {
	ctx    context.Context
	client *redis.Client
	prefix string
}

var _ profile.Store = (*Store)(nil)

func (f *Store) getKey(id int) string {
	return fmt.Sprintf("dataport:%s:profile:%d", f.prefix, id)
}

func (f *Store) indexKey() string {
	return fmt.Sprintf("dataport:%s:profiles", f.prefix)
}

// Get returns the profile with id
func (f *Store) Get(id int) (*sdk.Profile, error) {
	str, err := f.client.Get(f.ctx, f.getKey(id)).Result()
	if err == redis.Nil {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p sdk.Profile
	if err := json.Unmarshal([]byte(str), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns all stored profiles ordered by id
func (f *Store) List() ([]*sdk.Profile, error) {
	ids, err := f.client.SMembers(f.ctx, f.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*sdk.Profile, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		p, err := f.Get(id)
		if err == profile.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update writes the profile back to storage
func (f *Store) Update(p *sdk.Profile) error {
	if err := f.client.Set(f.ctx, f.getKey(p.ID), pjson.Stringify(p), 0).Err(); err != nil {
		return err
	}
	return f.client.SAdd(f.ctx, f.indexKey(), strconv.Itoa(p.ID)).Err()
}

// Close the store. The client is owned by the caller and left open.
func (f *Store) Close() error {
	return nil
}

// New will create a new profile store backed by Redis
func New(ctx context.Context, client *redis.Client, prefix string) (*Store, error) {
	return &Store{
		ctx:    ctx,
		client: client,
		prefix: prefix,
	}, nil
}

// Package valkeystore implements the cache store on Valkey via valkey-go.
package valkeystore

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// DefaultConnectTimeout bounds the initial ping in Open.
const DefaultConnectTimeout = 5 * time.Second

// Store is a cache store backed by a valkey-go client.
type Store struct {
	client valkey.Client
	prefix string
}

// Open parses a redis:// or valkey:// URL, connects and pings the server.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := valkey.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse valkey url: %w", err)
	}
	return OpenWithOption(ctx, opts, prefix)
}

// OpenWithOption connects using explicit client options.
func OpenWithOption(ctx context.Context, opts valkey.ClientOption, prefix string) (*Store, error) {
	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return &Store{client: client, prefix: prefix}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := s.client.B().Get().Key(s.prefix + key).Build()
	val, err := s.client.Do(ctx, cmd).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key with the given expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.client.B().Set().
		Key(s.prefix + key).
		Value(valkey.BinaryString(value)).
		Ex(ttl).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// Package redisstore keeps ledger documents in Redis hashes. Writes use
// WATCH/MULTI so a document changed after it was read aborts the transaction.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gurisko/hq/internal/blobstore"
	"github.com/redis/go-redis/v9"
)

const (
	fieldContent = "content"
	fieldVersion = "version"
)

// Store implements blobstore.Store using Redis
type Store struct {
	client *redis.Client
	prefix string
}

var _ blobstore.Store = (*Store)(nil)

// New connects to redisURL and verifies the server answers
func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client), nil
}

// NewWithClient creates a store from an existing Redis client
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, prefix: "hq:doc:"}
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

func (s *Store) logKey(path string) string {
	return s.prefix + path + ":log"
}

// Fetch implements blobstore.Store
func (s *Store) Fetch(ctx context.Context, path string) (*blobstore.Document, error) {
	vals, err := s.client.HMGet(ctx, s.key(path), fieldContent, fieldVersion).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	content, ok := vals[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, path)
	}
	version, _ := vals[1].(string)
	return &blobstore.Document{Path: path, Content: []byte(content), Version: blobstore.Version(version)}, nil
}

// Create implements blobstore.Store
func (s *Store) Create(ctx context.Context, path, message string, content []byte) (blobstore.Version, error) {
	key := s.key(path)
	version := uuid.NewString()

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", blobstore.ErrAlreadyExists, path)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldContent, string(content), fieldVersion, version)
			pipe.RPush(ctx, s.logKey(path), message)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// another writer touched the key between EXISTS and EXEC
		return "", fmt.Errorf("%w: %s", blobstore.ErrAlreadyExists, path)
	}
	if err != nil {
		if errors.Is(err, blobstore.ErrAlreadyExists) {
			return "", err
		}
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	return blobstore.Version(version), nil
}

// Update implements blobstore.Store
func (s *Store) Update(ctx context.Context, path, message string, content []byte, version blobstore.Version) (blobstore.Version, error) {
	key := s.key(path)
	next := uuid.NewString()

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", blobstore.ErrNotFound, path)
		}
		if err != nil {
			return err
		}
		if current != string(version) {
			return fmt.Errorf("%w: %s at %s, have %s", blobstore.ErrVersionConflict, path, current, version)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldContent, string(content), fieldVersion, next)
			pipe.RPush(ctx, s.logKey(path), message)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return "", fmt.Errorf("%w: %s changed during write", blobstore.ErrVersionConflict, path)
	}
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, blobstore.ErrVersionConflict) {
			return "", err
		}
		return "", fmt.Errorf("update %s: %w", path, err)
	}
	return blobstore.Version(next), nil
}

// Messages returns the commit messages recorded for path, oldest first
func (s *Store) Messages(ctx context.Context, path string) ([]string, error) {
	msgs, err := s.client.LRange(ctx, s.logKey(path), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read messages of %s: %w", path, err)
	}
	return msgs, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

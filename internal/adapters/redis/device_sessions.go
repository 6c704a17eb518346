package redis

// Package redis provides Redis-based adapters for the sessiond service.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
)

// DeviceSessionStore tracks per-user device-session records in Redis.
// Each user maps to a hash keyed by device id, so listing a user's
// sessions is a single HGETALL and eviction is a single HDEL.
type DeviceSessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewDeviceSessionStore creates a Redis-backed device-session store.
func NewDeviceSessionStore(client redis.UniversalClient) *DeviceSessionStore {
	return &DeviceSessionStore{
		client: client,
		prefix: "device_sessions:",
	}
}

// NewDeviceSessionStoreWithPrefix creates a store with a custom key prefix.
func NewDeviceSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *DeviceSessionStore {
	return &DeviceSessionStore{
		client: client,
		prefix: prefix,
	}
}

// List returns every device-session record for the user. Records that
// fail to decode are skipped rather than failing the whole listing.
func (s *DeviceSessionStore) List(ctx context.Context, userID string) ([]domainauth.DeviceSession, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	recs := make([]domainauth.DeviceSession, 0, len(fields))
	for _, data := range fields {
		var rec domainauth.DeviceSession
		if unmarshalErr := json.Unmarshal([]byte(data), &rec); unmarshalErr != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Put stores (or replaces) the record for the device.
func (s *DeviceSessionStore) Put(ctx context.Context, userID string, rec domainauth.DeviceSession) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}
	if rec.DeviceID == "" {
		return errors.New("device ID cannot be empty")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal device session: %w", err)
	}

	key := s.key(userID)
	if err := s.client.HSet(ctx, key, rec.DeviceID, data).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}

	// Keep the whole hash from outliving its longest session by much.
	ttl := time.Until(rec.ExpiresAt)
	if ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}
	return nil
}

// Delete removes the record for the device. Absent records are a no-op.
func (s *DeviceSessionStore) Delete(ctx context.Context, userID, deviceID string) error {
	if userID == "" || deviceID == "" {
		return nil // Nothing to delete
	}
	return s.client.HDel(ctx, s.key(userID), deviceID).Err()
}

// DeleteExpired scans all users and removes lapsed records, returning
// the number removed. Called periodically by the reaper.
func (s *DeviceSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	var removed int64
	now := time.Now()

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("redis hgetall %s: %w", key, err)
		}

		for deviceID, data := range fields {
			var rec domainauth.DeviceSession
			if unmarshalErr := json.Unmarshal([]byte(data), &rec); unmarshalErr != nil {
				// Unreadable records are garbage; reap them too.
				if delErr := s.client.HDel(ctx, key, deviceID).Err(); delErr == nil {
					removed++
				}
				continue
			}
			if rec.Expired(now) {
				if delErr := s.client.HDel(ctx, key, deviceID).Err(); delErr != nil {
					return removed, fmt.Errorf("redis hdel %s/%s: %w", key, deviceID, delErr)
				}
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	return removed, nil
}

func (s *DeviceSessionStore) key(userID string) string {
	return s.prefix + userID
}

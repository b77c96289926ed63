// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// archive.go parks finished export archives in Valkey between the request
// that builds them and the download that fetches them. An archive can be
// taken exactly once; unclaimed archives expire.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// archiveKeyPrefix is the Valkey key prefix for parked archives.
	archiveKeyPrefix = "export:"

	// DefaultArchiveTTL is how long an unclaimed archive is kept.
	DefaultArchiveTTL = 10 * time.Minute
)

// Archive is a packaged download.
type Archive struct {
	Name        string
	ContentType string
	Data        []byte
}

// ArchiveCache stores archives in Valkey under random ids.
type ArchiveCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewArchiveCache creates a new archive cache backed by the given Valkey client.
func NewArchiveCache(client *redis.Client, ttl time.Duration) *ArchiveCache {
	if ttl == 0 {
		ttl = DefaultArchiveTTL
	}
	return &ArchiveCache{client: client, ttl: ttl}
}

// Put stores an archive and returns the id to fetch it with.
func (ac *ArchiveCache) Put(ctx context.Context, a Archive) (string, error) {
	id := uuid.NewString()
	key := archiveKeyPrefix + id

	_, err := ac.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"name":         a.Name,
			"content_type": a.ContentType,
			"data":         a.Data,
		})
		pipe.Expire(ctx, key, ac.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("archive cache put: %w", err)
	}

	slog.Debug("archive parked", "id", id, "name", a.Name, "bytes", len(a.Data))
	return id, nil
}

// Take returns the archive and removes it. Returns nil if it does not exist
// or was already taken.
func (ac *ArchiveCache) Take(ctx context.Context, id string) (*Archive, error) {
	key := archiveKeyPrefix + id

	var get *redis.MapStringStringCmd
	_, err := ac.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGetAll(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive cache take: %w", err)
	}

	fields := get.Val()
	if len(fields) == 0 {
		slog.Debug("archive cache miss", "id", id)
		return nil, nil
	}
	return &Archive{
		Name:        fields["name"],
		ContentType: fields["content_type"],
		Data:        []byte(fields["data"]),
	}, nil
}

// Discard removes an archive without returning it.
func (ac *ArchiveCache) Discard(ctx context.Context, id string) {
	if err := ac.client.Del(ctx, archiveKeyPrefix+id).Err(); err != nil {
		slog.Warn("archive cache discard error", "id", id, "error", err)
	}
}

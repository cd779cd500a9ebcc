package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("session not found")

type AdminSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAdminSessionStore(rdb *redis.Client, ttl time.Duration) *AdminSessionStore {
	return &AdminSessionStore{rdb: rdb, ttl: ttl}
}

type AdminSession struct {
	AdminID   uint   `json:"aid"`
	Username  string `json:"usr"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func key(id string) string        { return fmt.Sprintf("tkj:sess:%s", id) }
func adminSetKey(aid uint) string { return fmt.Sprintf("tkj:admin_sessions:%d", aid) }

func (s *AdminSessionStore) TTL() time.Duration { return s.ttl }

func (s *AdminSessionStore) Create(ctx context.Context, id string, adminID uint, username string) error {
	now := time.Now()
	b, err := json.Marshal(AdminSession{
		AdminID:   adminID,
		Username:  username,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	pipe.SAdd(ctx, adminSetKey(adminID), id)
	pipe.Expire(ctx, adminSetKey(adminID), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *AdminSessionStore) Get(ctx context.Context, id string) (*AdminSession, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var as AdminSession
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	return &as, nil
}

func (s *AdminSessionStore) Delete(ctx context.Context, id string) error {
	as, _ := s.Get(ctx, id) // a missing session still gets its key removed
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if as != nil {
		pipe.SRem(ctx, adminSetKey(as.AdminID), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForAdmin ends every session of one admin. Password changes call it.
func (s *AdminSessionStore) RevokeAllForAdmin(ctx context.Context, adminID uint) error {
	ids, err := s.rdb.SMembers(ctx, adminSetKey(adminID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, adminSetKey(adminID))
	_, err = pipe.Exec(ctx)
	return err
}

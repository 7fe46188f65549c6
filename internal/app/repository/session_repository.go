package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"github.com/tagreview/tagreview-backend/pkg/redis"
)

var ErrSessionNotFound = errors.New("flow session not found")

// SessionRepository stores flow sessions and the per-session submit lock.
type SessionRepository interface {
	Save(ctx context.Context, session *model.FlowSession) error
	FindByID(ctx context.Context, id string) (*model.FlowSession, error)
	AcquireSubmitLock(ctx context.Context, sessionID string) (bool, error)
	ReleaseSubmitLock(ctx context.Context, sessionID string) error
}

type redisSessionRepository struct {
	client  *goredis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisSessionRepository keeps sessions for ttl. lockTTL bounds a lock whose
// holder died before releasing it.
func NewRedisSessionRepository(client *goredis.Client, ttl, lockTTL time.Duration) SessionRepository {
	return &redisSessionRepository{client: client, ttl: ttl, lockTTL: lockTTL}
}

func (r *redisSessionRepository) Save(ctx context.Context, session *model.FlowSession) error {
	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redis.SessionKey(session.ID), data, r.ttl).Err(); err != nil {
		logger.Error("Failed to save flow session", err, map[string]interface{}{
			"session_id": session.ID,
		})
		return err
	}
	return nil
}

func (r *redisSessionRepository) FindByID(ctx context.Context, id string) (*model.FlowSession, error) {
	data, err := r.client.Get(ctx, redis.SessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		logger.Error("Failed to load flow session", err, map[string]interface{}{
			"session_id": id,
		})
		return nil, err
	}

	var session model.FlowSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *redisSessionRepository) AcquireSubmitLock(ctx context.Context, sessionID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, redis.SubmitLockKey(sessionID), "1", r.lockTTL).Result()
	if err != nil {
		logger.Error("Failed to acquire submit lock", err, map[string]interface{}{
			"session_id": sessionID,
		})
		return false, err
	}
	return ok, nil
}

func (r *redisSessionRepository) ReleaseSubmitLock(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, redis.SubmitLockKey(sessionID)).Err()
}

type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locks    map[string]bool
}

// NewMemorySessionRepository keeps sessions in process memory (development, tests).
func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{
		sessions: make(map[string][]byte),
		locks:    make(map[string]bool),
	}
}

func (r *memorySessionRepository) Save(ctx context.Context, session *model.FlowSession) error {
	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sessions[session.ID] = data
	r.mu.Unlock()
	return nil
}

func (r *memorySessionRepository) FindByID(ctx context.Context, id string) (*model.FlowSession, error) {
	r.mu.Lock()
	data, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	// 복사본을 돌려주어 호출자의 수정이 저장 전까지 반영되지 않게 한다
	var session model.FlowSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *memorySessionRepository) AcquireSubmitLock(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks[sessionID] {
		return false, nil
	}
	r.locks[sessionID] = true
	return true, nil
}

func (r *memorySessionRepository) ReleaseSubmitLock(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.locks, sessionID)
	r.mu.Unlock()
	return nil
}

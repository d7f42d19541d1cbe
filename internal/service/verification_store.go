package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"account-lifecycle/internal/domain"
)

// VerificationStore guarda códigos de un solo uso ligados a un usuario.
// Consume es un borrado condicional atómico: solo una llamada concurrente
// sobre el mismo código puede devolver true.
type VerificationStore interface {
	Create(ctx context.Context, code domain.VerificationCode) error
	FindByCode(ctx context.Context, code string, purpose domain.CodePurpose) (domain.VerificationCode, error)
	Consume(ctx context.Context, code string, purpose domain.CodePurpose) (bool, error)
}

type memoryVerificationStore struct {
	mu    sync.Mutex
	items map[string]domain.VerificationCode
}

func NewMemoryVerificationStore() VerificationStore {
	return &memoryVerificationStore{
		items: make(map[string]domain.VerificationCode),
	}
}

func memoryKey(code string, purpose domain.CodePurpose) string {
	return string(purpose) + "|" + code
}

func (s *memoryVerificationStore) Create(_ context.Context, code domain.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(code.Code) == "" {
		return errors.New("verification code is empty")
	}
	if !code.Purpose.Valid() {
		return domain.ErrUnknownPurpose
	}
	s.items[memoryKey(code.Code, code.Purpose)] = code
	return nil
}

func (s *memoryVerificationStore) FindByCode(_ context.Context, code string, purpose domain.CodePurpose) (domain.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vc, ok := s.items[memoryKey(code, purpose)]
	if !ok {
		return domain.VerificationCode{}, ErrCodeNotFound
	}
	return vc, nil
}

func (s *memoryVerificationStore) Consume(_ context.Context, code string, purpose domain.CodePurpose) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey(code, purpose)
	if _, ok := s.items[key]; !ok {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisVerificationStore struct {
	client  redisKV
	prefix  string
	timeout time.Duration
}

// NewRedisVerificationStore guarda cada código como una clave con TTL propio.
func NewRedisVerificationStore(client *redis.Client) VerificationStore {
	if client == nil {
		return nil
	}
	return &redisVerificationStore{
		client:  client,
		prefix:  "auth:code:",
		timeout: 500 * time.Millisecond,
	}
}

func (s *redisVerificationStore) key(code string, purpose domain.CodePurpose) string {
	return s.prefix + string(purpose) + ":" + code
}

func (s *redisVerificationStore) Create(ctx context.Context, code domain.VerificationCode) error {
	if strings.TrimSpace(code.Code) == "" {
		return errors.New("verification code is empty")
	}
	if !code.Purpose.Valid() {
		return domain.ErrUnknownPurpose
	}
	payload, err := json.Marshal(code)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !code.ExpiresAt.IsZero() {
		ttl = time.Until(code.ExpiresAt)
		if ttl < time.Second {
			ttl = time.Second
		}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Set(ctx, s.key(code.Code, code.Purpose), payload, ttl).Err()
}

func (s *redisVerificationStore) FindByCode(ctx context.Context, code string, purpose domain.CodePurpose) (domain.VerificationCode, error) {
	if strings.TrimSpace(code) == "" {
		return domain.VerificationCode{}, ErrCodeNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.client.Get(ctx, s.key(code, purpose)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.VerificationCode{}, ErrCodeNotFound
		}
		return domain.VerificationCode{}, err
	}
	var vc domain.VerificationCode
	if err := json.Unmarshal(raw, &vc); err != nil {
		return domain.VerificationCode{}, err
	}
	if vc.Purpose != purpose {
		return domain.VerificationCode{}, ErrCodeNotFound
	}
	return vc, nil
}

func (s *redisVerificationStore) Consume(ctx context.Context, code string, purpose domain.CodePurpose) (bool, error) {
	if strings.TrimSpace(code) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.client.Del(ctx, s.key(code, purpose)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// El PTTL recupera claves que hayan quedado sin expiración.
var requestLimitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

const requestLimitTimeout = 500 * time.Millisecond

type redisRequestLimiter struct {
	client redis.Scripter
	logger *zap.Logger
	prefix string
	window time.Duration
	max    int64
}

// NewRedisRequestLimiter comparte los contadores entre réplicas. Cada clave
// vive lo que dura su ventana.
func NewRedisRequestLimiter(client *redis.Client, logger *zap.Logger, prefix string, window time.Duration, max int) RequestLimiter {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if window < time.Millisecond {
		window = defaultResetWindow
	}
	if max <= 0 {
		max = defaultResetMax
	}
	return &redisRequestLimiter{
		client: client,
		logger: logger,
		prefix: prefix,
		window: window,
		max:    int64(max),
	}
}

// Allow deja pasar la petición si redis no responde: un redis caído no debe
// bloquear la recuperación de cuentas.
func (l *redisRequestLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, requestLimitTimeout)
	defer cancel()

	count, err := requestLimitScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("request limiter unavailable, allowing request", zap.Error(err))
		return true
	}
	return count <= l.max
}

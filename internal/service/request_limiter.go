package service

import (
	"context"
	"sync"
	"time"
)

// RequestLimiter acota cuántas veces puede dispararse un flujo para una misma
// clave dentro de una ventana fija. Las claves llegan ya separadas por flujo.
type RequestLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// defaultMaxTrackedKeys acota la memoria del limitador local cuando llegan
// muchas claves distintas dentro de una misma ventana.
const defaultMaxTrackedKeys = 100_000

type windowCounter struct {
	count   int
	resetAt time.Time
}

type memoryRequestLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	maxKeys   int
	counters  map[string]windowCounter
	nextSweep time.Time
	now       func() time.Time
}

// NewRequestLimiter devuelve un limitador en memoria, válido para una sola réplica.
func NewRequestLimiter(window time.Duration, max int) RequestLimiter {
	if window <= 0 {
		window = defaultResetWindow
	}
	if max <= 0 {
		max = defaultResetMax
	}
	return &memoryRequestLimiter{
		window:   window,
		max:      max,
		maxKeys:  defaultMaxTrackedKeys,
		counters: make(map[string]windowCounter),
		now:      time.Now,
	}
}

func (l *memoryRequestLimiter) Allow(_ context.Context, key string) bool {
	if key == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !now.Before(l.nextSweep) {
		l.sweep(now)
	}

	c, ok := l.counters[key]
	if !ok || !now.Before(c.resetAt) {
		if !ok && len(l.counters) >= l.maxKeys {
			l.sweep(now)
			if len(l.counters) >= l.maxKeys {
				return false
			}
		}
		c = windowCounter{resetAt: now.Add(l.window)}
	}
	if c.count >= l.max {
		return false
	}
	c.count++
	l.counters[key] = c
	return true
}

// sweep descarta las ventanas vencidas.
func (l *memoryRequestLimiter) sweep(now time.Time) {
	for key, c := range l.counters {
		if !now.Before(c.resetAt) {
			delete(l.counters, key)
		}
	}
	l.nextSweep = now.Add(l.window)
}

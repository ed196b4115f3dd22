package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/toll-settlement/internal/apperr"
)

const importLockKey = "import:lock"

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// lockClient is the part of *redis.Client the lock uses.
type lockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// ImportLock serialises imports and resets.  With Redis the lock is shared
// by every replica; without it a process-local mutex is used.
type ImportLock struct {
	rdb   lockClient
	ttl   time.Duration
	local sync.Mutex
}

// NewImportLock returns a lock whose Redis key expires after ttl, so a
// crashed holder cannot wedge ingestion forever.
func NewImportLock(rdb *redis.Client, ttl time.Duration) *ImportLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	l := &ImportLock{ttl: ttl}
	if rdb != nil {
		l.rdb = rdb
	}
	return l
}

// Acquire takes the lock and returns its release function.  A held lock
// yields a KindConflict error.  Each acquisition stores a fresh token, so
// only the caller that took the lock can release it.
func (l *ImportLock) Acquire(ctx context.Context) (func(), error) {
	busy := apperr.New(apperr.KindConflict, apperr.CodeImportInProgress, "another import or reset is in progress")
	if l.rdb == nil {
		if !l.local.TryLock() {
			return nil, busy
		}
		return l.local.Unlock, nil
	}

	holder := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, importLockKey, holder, l.ttl).Result()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, apperr.CodeInternal, "import lock unavailable")
	}
	if !ok {
		return nil, busy
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{importLockKey}, holder).Err()
	}, nil
}

// Exclusive wraps a route so at most one import or reset runs at a time.
func (l *ImportLock) Exclusive() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			release, err := l.Acquire(c.Request().Context())
			if err != nil {
				return err
			}
			defer release()
			return next(c)
		}
	}
}

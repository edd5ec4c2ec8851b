package redis

import (
	"context"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/pkg/logger"
)

// RunLock serializes derive runs per symbol across pods using the
// Redlock algorithm. A run that outlives the TTL loses the lock; the
// TTL is sized well above the expected run duration in config.
type RunLock struct {
	lockManager *redlock.RedLock
	lockName    string
	ttl         time.Duration
	locked      bool
}

// TryAcquire attempts to acquire the run lock. Returns false without
// error when another pod holds it.
func (rl *RunLock) TryAcquire(ctx context.Context) (bool, error) {
	expiry, err := rl.lockManager.Lock(ctx, rl.lockName, rl.ttl)
	if err != nil {
		logger.Debug("derive lock already held",
			zap.String("lock_name", rl.lockName),
		)
		return false, nil
	}

	if expiry <= 0 {
		return false, nil
	}

	rl.locked = true

	logger.Info("derive lock acquired",
		zap.String("lock_name", rl.lockName),
		zap.Duration("ttl", rl.ttl),
	)

	return true, nil
}

// Release releases the run lock. A lock that already expired is not an
// error since the TTL covers crash recovery.
func (rl *RunLock) Release(ctx context.Context) {
	if !rl.locked {
		return
	}

	if err := rl.lockManager.UnLock(ctx, rl.lockName); err != nil {
		logger.Warn("failed to release derive lock (may have expired)",
			zap.String("lock_name", rl.lockName),
			zap.Error(err),
		)
	} else {
		logger.Info("derive lock released",
			zap.String("lock_name", rl.lockName),
		)
	}

	rl.locked = false
}

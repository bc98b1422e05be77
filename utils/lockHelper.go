package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/fittrack_backend/config"
)

// LedgerLock serializes writers of a single daily ledger document behind a
// per-(user,date) Redis lock. The lock is a best-effort optimization:
// correctness must not depend on Redis, the ledger write path also relies on
// store-native transforms and a conditional create.
//
// On success the returned release func must be called once the caller is done
// with the ledger; the caller holds the lock for the whole read-modify-write.
func LedgerLock(ctx context.Context, userId string, date string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, ErrorLockNotObtained
	}
	lockKey := fmt.Sprintf("LedgerLock:%s:%s", userId, date)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		config.LogError(logger, moduleName, functionName, "Could not obtain ledger lock", lockKey, err)
		return nil, ErrorLockNotObtained
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining ledger lock", lockKey, err)
		return nil, err
	}
	return func() {
		_ = lock.Release(ctx)
	}, nil
}

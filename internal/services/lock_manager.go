// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager hands out one RWMutex per project.
type LockManager struct {
	projectLocks  map[string]*LockInfo
	globalLock    sync.RWMutex
	lockTTL       time.Duration
	maxLocks      int
	cleanupTicker *time.Ticker
	done          chan struct{}
	stopOnce      sync.Once
}

// LockInfo wraps a project lock with its bookkeeping.
type LockInfo struct {
	Mutex    *sync.RWMutex
	LastUsed time.Time
	inUse    int32
}

// NewLockManager creates a lock manager with a background sweeper.
func NewLockManager() *LockManager {
	lm := &LockManager{
		projectLocks: make(map[string]*LockInfo),
		lockTTL:      30 * time.Minute,
		maxLocks:     200,
		done:         make(chan struct{}),
	}
	lm.startCleanup(5 * time.Minute)
	return lm
}

// acquire returns the lock info for id and pins it against cleanup.
func (lm *LockManager) acquire(projectID string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, ok := lm.projectLocks[projectID]
	if !ok {
		info = &LockInfo{Mutex: &sync.RWMutex{}}
		lm.projectLocks[projectID] = info
	}
	info.LastUsed = time.Now()
	info.inUse++
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	info.inUse--
	info.LastUsed = time.Now()
	lm.globalLock.Unlock()
}

// GetProjectLock returns the lock of a project, creating it on first use.
func (lm *LockManager) GetProjectLock(projectID string) *sync.RWMutex {
	info := lm.acquire(projectID)
	lm.release(info)
	return info.Mutex
}

// ExecuteWithProjectLock runs fn while holding the project's write lock.
func (lm *LockManager) ExecuteWithProjectLock(projectID string, fn func() error) error {
	info := lm.acquire(projectID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// ExecuteWithProjectReadLock runs fn while holding the project's read lock.
func (lm *LockManager) ExecuteWithProjectReadLock(projectID string, fn func() error) error {
	info := lm.acquire(projectID)
	defer lm.release(info)

	info.Mutex.RLock()
	defer info.Mutex.RUnlock()
	return fn()
}

// Forget drops the lock of a deleted project once nobody holds it.
func (lm *LockManager) Forget(projectID string) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	if info, ok := lm.projectLocks[projectID]; ok && info.inUse == 0 {
		delete(lm.projectLocks, projectID)
	}
}

// Size returns the number of tracked locks.
func (lm *LockManager) Size() int {
	lm.globalLock.RLock()
	defer lm.globalLock.RUnlock()
	return len(lm.projectLocks)
}

// Stop ends the background sweeper.
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() {
		lm.cleanupTicker.Stop()
		close(lm.done)
	})
}

func (lm *LockManager) startCleanup(interval time.Duration) {
	lm.cleanupTicker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-lm.cleanupTicker.C:
				lm.cleanupUnusedLocks(time.Now())
			case <-lm.done:
				return
			}
		}
	}()
}

// cleanupUnusedLocks only kicks in past maxLocks, and never drops a pinned lock.
func (lm *LockManager) cleanupUnusedLocks(now time.Time) int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if len(lm.projectLocks) <= lm.maxLocks {
		return 0
	}
	removed := 0
	for id, info := range lm.projectLocks {
		if info.inUse == 0 && now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.projectLocks, id)
			removed++
		}
	}
	return removed
}

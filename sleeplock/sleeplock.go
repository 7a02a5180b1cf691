// Package sleeplock provides blocking locks keyed by block number.
//
// Unlike a plain mutex, a sleep lock may be held across disk I/O, so
// waiters block on a condition variable instead of spinning. The map
// behaves as if there were one lock per possible block number, but
// only keeps state for blocks that are currently held or contended,
// sharded to spread out synchronization.
package sleeplock

import (
	"sync"

	"github.com/krmmzs/go-xv6/common"
)

const nshard = 37

type sleeper struct {
	locked  bool
	cond    *sync.Cond
	waiters uint64
}

type shard struct {
	mu    *sync.Mutex
	locks map[common.Bnum]*sleeper
}

func mkShard() *shard {
	mu := new(sync.Mutex)
	return &shard{
		mu:    mu,
		locks: make(map[common.Bnum]*sleeper),
	}
}

func (s *shard) acquire(bn common.Bnum) {
	s.mu.Lock()
	for {
		l, ok := s.locks[bn]
		if !ok {
			l = &sleeper{cond: sync.NewCond(s.mu)}
			s.locks[bn] = l
		}
		if !l.locked {
			l.locked = true
			break
		}
		// A sleeping waiter keeps the entry alive: release only
		// deletes when waiters is zero.
		l.waiters += 1
		l.cond.Wait()
		l.waiters -= 1
	}
	s.mu.Unlock()
}

func (s *shard) release(bn common.Bnum) {
	s.mu.Lock()
	l, ok := s.locks[bn]
	if !ok || !l.locked {
		s.mu.Unlock()
		panic("sleeplock: release of unheld lock")
	}
	l.locked = false
	if l.waiters > 0 {
		l.cond.Signal()
	} else {
		delete(s.locks, bn)
	}
	s.mu.Unlock()
}

// Map is a sharded collection of sleep locks.
type Map struct {
	shards []*shard
}

func MkMap() *Map {
	var shards []*shard
	for i := uint64(0); i < nshard; i++ {
		shards = append(shards, mkShard())
	}
	return &Map{shards: shards}
}

func (m *Map) Acquire(bn common.Bnum) {
	m.shards[bn%nshard].acquire(bn)
}

func (m *Map) Release(bn common.Bnum) {
	m.shards[bn%nshard].release(bn)
}

package fslog

import (
	"sync"

	"github.com/krmmzs/go-xv6/bcache"
	"github.com/krmmzs/go-xv6/common"
)

// logHdr mirrors the on-disk log header: how many blocks the log
// holds and, for each, the home address it belongs to.
type logHdr struct {
	n      uint64
	blocks []common.Bnum // fixed length LOGBLOCKS, first n entries live
}

type Log struct {
	mu *sync.Mutex
	bc *bcache.Bcache

	start common.Bnum // header block; staging blocks follow
	size  uint64      // log blocks on disk, including the header

	outstanding uint64 // operations admitted but not yet ended
	committing  bool
	lh          logHdr

	condSpace  *sync.Cond // BeginOp waits here for log space
	condCommit *sync.Cond // BeginOp waits here for a commit to finish
}

// capacity is the number of staging blocks the log can hold.
func (l *Log) capacity() uint64 {
	return l.size - 1
}

// slot is the disk address of staging slot i.
func (l *Log) slot(i uint64) common.Bnum {
	return l.start + 1 + common.Bnum(i)
}

func (l *Log) LogSz() uint64 {
	return l.size
}

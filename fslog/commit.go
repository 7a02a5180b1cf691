package fslog

import (
	"github.com/krmmzs/go-xv6/util"
)

// writeLog copies the new content of each staged block from the cache
// into its slot in the log region.
func (l *Log) writeLog() {
	for i := uint64(0); i < l.lh.n; i++ {
		to := l.bc.Bread(l.slot(i))
		from := l.bc.Bread(l.lh.blocks[i])
		copy(to.Data, from.Data)
		l.bc.Bwrite(to)
		l.bc.Brelse(from)
		l.bc.Brelse(to)
	}
}

// installTrans copies staged blocks from the log region to their home
// addresses. During recovery the blocks were never pinned, so there
// is nothing to unpin.
func (l *Log) installTrans(recovering bool) {
	for i := uint64(0); i < l.lh.n; i++ {
		lbuf := l.bc.Bread(l.slot(i))
		dbuf := l.bc.Bread(l.lh.blocks[i])
		copy(dbuf.Data, lbuf.Data)
		l.bc.Bwrite(dbuf)
		if !recovering {
			l.bc.Unpin(dbuf)
		}
		l.bc.Brelse(lbuf)
		l.bc.Brelse(dbuf)
	}
}

// commit makes the current window durable and frees the log. It runs
// with l.mu released; admission is closed while committing is set, so
// only the committer reads or writes the staged state.
//
// Each phase ends with a barrier. Staged copies must be durable
// before the header can name them, and installation must be durable
// before the header forgets it.
func (l *Log) commit() {
	if l.lh.n == 0 {
		return
	}
	util.DPrintf(1, "commit: %d blocks\n", l.lh.n)
	l.writeLog()
	l.bc.Barrier()
	l.writeHdr(l.lh) // commit point
	l.bc.Barrier()
	l.installTrans(false)
	l.bc.Barrier()
	l.lh.n = 0
	l.writeHdr(l.lh) // free the log
	l.bc.Barrier()
}

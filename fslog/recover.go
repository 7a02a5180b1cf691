package fslog

import (
	"github.com/krmmzs/go-xv6/util"
)

// recoverLog brings the disk to a consistent state after a crash. A
// window that reached its header write is committed and gets
// reinstalled; with a zero header there is nothing to do, and
// whatever a crashed commit left in the staging area is ignored.
// Safe to run any number of times.
func (l *Log) recoverLog() {
	lh := l.readHdr()
	l.lh = lh
	if lh.n > 0 {
		util.DPrintf(1, "recover: %d blocks\n", lh.n)
	}
	l.installTrans(true)
	// reinstalled blocks must be durable before the header is cleared
	l.bc.Barrier()
	l.lh.n = 0
	l.writeHdr(l.lh)
	l.bc.Barrier()
}

package fslog

import (
	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"

	"github.com/krmmzs/go-xv6/common"
)

// readHdr decodes the on-disk log header.
func (l *Log) readHdr() logHdr {
	b := l.bc.Bread(l.start)
	dec := marshal.NewDec(b.Data)
	n := dec.GetInt()
	blocks := dec.GetInts(common.LOGBLOCKS)
	l.bc.Brelse(b)
	if n > l.capacity() {
		panic("loghdr: bad count")
	}
	return logHdr{n: n, blocks: blocks}
}

// writeHdr writes lh to the header block. The write is the commit
// point once it is durable, so callers follow it with a barrier.
func (l *Log) writeHdr(lh logHdr) {
	b := l.bc.Bread(l.start)
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(lh.n)
	enc.PutInts(lh.blocks)
	copy(b.Data, enc.Finish())
	l.bc.Bwrite(b)
	l.bc.Brelse(b)
}

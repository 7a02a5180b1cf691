// Package bcache caches disk blocks in memory.
//
// The cache is the sole owner of each block's in-memory copy: at most
// one buffer exists per block number, so all readers and writers of a
// block share it. A per-block sleep lock serializes access to the
// buffer's contents and may be held across disk I/O. Reference counts
// keep a buffer resident while anyone is using it; pinned buffers
// additionally survive until the logging layer has flushed them.
//
// Writes go through to disk immediately but are durable only after
// Barrier.
package bcache

import (
	"sync"

	"github.com/tchajed/goose/machine/disk"

	"github.com/krmmzs/go-xv6/common"
	"github.com/krmmzs/go-xv6/pgalloc"
	"github.com/krmmzs/go-xv6/sleeplock"
	"github.com/krmmzs/go-xv6/util"
)

type Buf struct {
	Blkno common.Bnum
	Data  disk.Block // guarded by the block's sleep lock
	valid bool       // guarded by the block's sleep lock

	refcnt uint64 // guarded by the cache lock
}

type Bcache struct {
	mu    *sync.Mutex
	d     disk.Disk
	sz    uint64
	pool  *pgalloc.Pool
	locks *sleeplock.Map
	bufs  map[common.Bnum]*Buf
	nbuf  uint64
}

func MkBcache(d disk.Disk, nbuf uint64) *Bcache {
	return &Bcache{
		mu:    new(sync.Mutex),
		d:     d,
		sz:    d.Size(),
		pool:  pgalloc.MkPool(nbuf),
		locks: sleeplock.MkMap(),
		bufs:  make(map[common.Bnum]*Buf, nbuf),
		nbuf:  nbuf,
	}
}

// bget returns the buffer for block bn with its reference count
// incremented, allocating or evicting as needed.
func (bc *Bcache) bget(bn common.Bnum) *Buf {
	bc.mu.Lock()
	b, ok := bc.bufs[bn]
	if ok {
		b.refcnt += 1
		bc.mu.Unlock()
		return b
	}
	if uint64(len(bc.bufs)) >= bc.nbuf {
		bc.evict()
	}
	pg := bc.pool.Alloc()
	if pg == nil {
		panic("bget: no buffers")
	}
	b = &Buf{Blkno: bn, Data: pg, refcnt: 1}
	bc.bufs[bn] = b
	bc.mu.Unlock()
	return b
}

// evict drops one unreferenced buffer. Caller holds bc.mu.
func (bc *Bcache) evict() {
	for bn, b := range bc.bufs {
		if b.refcnt == 0 {
			util.DPrintf(5, "evict: %d\n", bn)
			delete(bc.bufs, bn)
			bc.pool.Free(b.Data)
			return
		}
	}
	panic("bget: no buffers")
}

// Bread returns a locked buffer containing the contents of block bn.
// The caller must release it with Brelse.
func (bc *Bcache) Bread(bn common.Bnum) *Buf {
	if bn >= bc.sz {
		panic("bread: block out of range")
	}
	b := bc.bget(bn)
	bc.locks.Acquire(bn)
	if !b.valid {
		bc.d.ReadTo(uint64(bn), b.Data)
		b.valid = true
	}
	return b
}

// Brelse unlocks b and drops the reference taken by Bread.
func (bc *Bcache) Brelse(b *Buf) {
	bc.locks.Release(b.Blkno)
	bc.mu.Lock()
	if b.refcnt == 0 {
		panic("brelse")
	}
	b.refcnt -= 1
	bc.mu.Unlock()
}

// Bwrite writes b's contents through to disk. The caller must hold
// the buffer locked; the write is durable only after Barrier.
func (bc *Bcache) Bwrite(b *Buf) {
	bc.d.Write(uint64(b.Blkno), b.Data)
}

// Pin takes an extra reference so b stays cached until Unpin, even
// with no lock held.
func (bc *Bcache) Pin(b *Buf) {
	bc.mu.Lock()
	b.refcnt += 1
	bc.mu.Unlock()
}

func (bc *Bcache) Unpin(b *Buf) {
	bc.mu.Lock()
	if b.refcnt == 0 {
		panic("bunpin")
	}
	b.refcnt -= 1
	bc.mu.Unlock()
}

// Barrier makes all writes issued so far durable.
func (bc *Bcache) Barrier() {
	bc.d.Barrier()
}

func (bc *Bcache) Size() uint64 {
	return bc.sz
}

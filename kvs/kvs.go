// Package kvs implements a block-granularity key-value store on top
// of the log: keys are data-block indexes, values are whole blocks.
//
// Every update runs inside a logged operation, so each batch of puts
// is crash-atomic. Reads also run inside an operation, ordering them
// with the commit protocol.
package kvs

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/krmmzs/go-xv6/bcache"
	"github.com/krmmzs/go-xv6/common"
	"github.com/krmmzs/go-xv6/fslog"
	"github.com/krmmzs/go-xv6/sleeplock"
	"github.com/krmmzs/go-xv6/super"
	"github.com/krmmzs/go-xv6/util"
)

type KVS struct {
	fs    *super.FsSuper
	bc    *bcache.Bcache
	log   *fslog.Log
	locks *sleeplock.Map
}

type KVPair struct {
	Key uint64
	Val []byte
}

// MkKVS formats d and mounts a fresh store over it.
func MkKVS(d disk.Disk) *KVS {
	fs := super.MkFsSuper(d)
	return mountKVS(fs)
}

// OpenKVS mounts an existing store, recovering puts that committed
// before a crash.
func OpenKVS(d disk.Disk) *KVS {
	fs := super.LoadFsSuper(d)
	return mountKVS(fs)
}

func mountKVS(fs *super.FsSuper) *KVS {
	bc := bcache.MkBcache(fs.Disk, common.NBUF)
	l := fslog.MkLog(bc, fs)
	return &KVS{
		fs:    fs,
		bc:    bc,
		log:   l,
		locks: sleeplock.MkMap(),
	}
}

// MultiPut writes all pairs to the store and reports whether they
// were accepted. Each batch of MAXOPBLOCKS pairs commits atomically;
// a call with more pairs than that is split and is atomic only per
// batch.
func (kvs *KVS) MultiPut(pairs []KVPair) bool {
	for _, p := range pairs {
		if p.Key >= kvs.fs.NData() || uint64(len(p.Val)) != disk.BlockSize {
			return false
		}
	}
	n := uint64(len(pairs))
	nbatch := util.RoundUp(n, common.MAXOPBLOCKS)
	util.DPrintf(2, "MultiPut: %d pairs in %d batches\n", n, nbatch)
	for i := uint64(0); i < nbatch; i++ {
		lo := i * common.MAXOPBLOCKS
		hi := util.Min(lo+common.MAXOPBLOCKS, n)
		kvs.putBatch(pairs[lo:hi])
	}
	return true
}

func (kvs *KVS) putBatch(pairs []KVPair) {
	kvs.log.BeginOp()
	for _, p := range pairs {
		b := kvs.bc.Bread(kvs.fs.DataBnum(p.Key))
		copy(b.Data, p.Val)
		kvs.log.Write(b)
		kvs.bc.Brelse(b)
	}
	kvs.log.EndOp()
}

// Get reads the current value of key. The result reflects every
// committed put, and may reflect a put whose commit is still pending.
func (kvs *KVS) Get(key uint64) *KVPair {
	bn := kvs.fs.DataBnum(key)
	kvs.log.BeginOp()
	b := kvs.bc.Bread(bn)
	val := util.CloneByteSlice(b.Data)
	kvs.bc.Brelse(b)
	kvs.log.EndOp()
	return &KVPair{Key: key, Val: val}
}

// Lock serializes access to key across whole operations, for callers
// doing read-modify-write sequences with Get and MultiPut.
func (kvs *KVS) Lock(key uint64) {
	kvs.locks.Acquire(kvs.fs.DataBnum(key))
}

func (kvs *KVS) Unlock(key uint64) {
	kvs.locks.Release(kvs.fs.DataBnum(key))
}

func (kvs *KVS) Close() {
	kvs.fs.Disk.Close()
}

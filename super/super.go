// Package super manages the file-system superblock and disk layout.
//
// Disk layout: [ boot block | super block | log | data blocks ]
//
// The superblock records the layout so that a re-mount finds the log
// where mkfs put it.
package super

import (
	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"

	"github.com/krmmzs/go-xv6/common"
	"github.com/krmmzs/go-xv6/util"
)

const FSMAGIC uint64 = 0x10203040

const (
	bootBlock  common.Bnum = 0 // reserved
	superBlock common.Bnum = 1
)

type FsSuper struct {
	Disk      disk.Disk
	Size      uint64 // total blocks on the disk
	NLog      uint64 // log blocks, including the header block
	LogStart  common.Bnum
	DataStart common.Bnum
}

// MkFsSuper formats d with the standard layout and returns its
// superblock. The log header is cleared, so a subsequent mount finds
// an empty log.
func MkFsSuper(d disk.Disk) *FsSuper {
	sz := d.Size()
	if sz < 2+common.LOGDISKBLOCKS+1 {
		panic("mkfs: disk too small")
	}
	fs := &FsSuper{
		Disk:      d,
		Size:      sz,
		NLog:      common.LOGDISKBLOCKS,
		LogStart:  superBlock + 1,
		DataStart: superBlock + 1 + common.Bnum(common.LOGDISKBLOCKS),
	}
	util.DPrintf(1, "MkFsSuper: %d blocks, log at %d, data at %d\n",
		fs.Size, fs.LogStart, fs.DataStart)
	d.Write(uint64(superBlock), fs.encode())
	// clear the log header
	d.Write(uint64(fs.LogStart), make(disk.Block, disk.BlockSize))
	d.Barrier()
	return fs
}

// LoadFsSuper reads the superblock of a previously formatted disk.
func LoadFsSuper(d disk.Disk) *FsSuper {
	blk := d.Read(uint64(superBlock))
	dec := marshal.NewDec(blk)
	if dec.GetInt() != FSMAGIC {
		panic("super: bad magic")
	}
	size := dec.GetInt()
	nLog := dec.GetInt()
	logStart := dec.GetInt()
	dataStart := dec.GetInt()
	fs := &FsSuper{
		Disk:      d,
		Size:      size,
		NLog:      nLog,
		LogStart:  logStart,
		DataStart: dataStart,
	}
	if fs.Size > d.Size() || fs.DataStart != fs.LogStart+common.Bnum(fs.NLog) {
		panic("super: corrupt layout")
	}
	return fs
}

func (fs *FsSuper) encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(FSMAGIC)
	enc.PutInt(fs.Size)
	enc.PutInt(fs.NLog)
	enc.PutInt(fs.LogStart)
	enc.PutInt(fs.DataStart)
	return enc.Finish()
}

func (fs *FsSuper) MaxBnum() common.Bnum {
	return common.Bnum(fs.Size)
}

// NData reports how many data blocks the disk has.
func (fs *FsSuper) NData() uint64 {
	return fs.Size - uint64(fs.DataStart)
}

// DataBnum translates a data-relative block index to an absolute
// block number.
func (fs *FsSuper) DataBnum(i uint64) common.Bnum {
	if i >= fs.NData() {
		panic("super: data block out of range")
	}
	return fs.DataStart + common.Bnum(i)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tchajed/goose/machine/disk"

	"github.com/krmmzs/go-xv6/bcache"
	"github.com/krmmzs/go-xv6/common"
	"github.com/krmmzs/go-xv6/fslog"
	"github.com/krmmzs/go-xv6/super"
	"github.com/krmmzs/go-xv6/util"
	"github.com/krmmzs/go-xv6/util/timed_disk"
)

// benchState bundles the mounted system so clients share one log.
type benchState struct {
	fs *super.FsSuper
	bc *bcache.Bcache
	l  *fslog.Log
}

// opSequence runs one logged operation: read, overwrite, and log
// opblocks blocks in the thread's private slice of the data region.
func opSequence(st *benchState, data []byte, opblocks uint64, tid uint64) {
	st.l.BeginOp()
	for i := uint64(0); i < opblocks; i++ {
		b := st.bc.Bread(st.fs.DataBnum(opblocks*tid + i))
		copy(b.Data, data)
		st.l.Write(b)
		st.bc.Brelse(b)
	}
	st.l.EndOp()
}

func mkdata(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 128)
	}
	return data
}

func client(st *benchState, duration time.Duration, opblocks uint64, tid uint64) int {
	data := mkdata(disk.BlockSize)
	start := time.Now()
	i := 0
	for {
		opSequence(st, data, opblocks, tid)
		i++
		t := time.Now()
		elapsed := t.Sub(start)
		if elapsed >= duration {
			break
		}
	}
	return i
}

func run(st *benchState, duration time.Duration, opblocks uint64, nt int) int {
	count := make(chan int)
	for i := 0; i < nt; i++ {
		go func(tid int) {
			count <- client(st, duration, opblocks, uint64(tid))
		}(i)
	}
	n := 0
	for i := 0; i < nt; i++ {
		n += <-count
	}
	return n
}

func main() {
	var err error
	var duration time.Duration
	var nthread int
	var diskfile string
	var sizeMegabytes uint64
	var opblocks uint64
	var dumpStats bool
	flag.DurationVar(&duration, "benchtime", 10*time.Second, "time to run the benchmark for")
	flag.IntVar(&nthread, "threads", 1, "number of concurrent operations")
	flag.StringVar(&diskfile, "disk", "", "disk image (empty for MemDisk)")
	flag.Uint64Var(&sizeMegabytes, "size", 16, "size of data region (in MB)")
	flag.Uint64Var(&opblocks, "op-blocks", 4, "blocks written per operation")
	flag.BoolVar(&dumpStats, "stats", false, "dump disk stats to stderr at end")
	flag.Uint64Var(&util.Debug, "debug", 0, "debug level (higher is more verbose)")
	flag.Parse()
	if nthread < 1 {
		panic("invalid thread count")
	}
	if opblocks < 1 || opblocks > common.MAXOPBLOCKS {
		panic(fmt.Sprintf("op-blocks must be between 1 and %d", common.MAXOPBLOCKS))
	}

	diskBlocks := 2 + common.LOGDISKBLOCKS + sizeMegabytes*1024/4
	var d disk.Disk
	if diskfile == "" {
		d = disk.NewMemDisk(diskBlocks)
	} else {
		d, err = disk.NewFileDisk(diskfile, diskBlocks)
		if err != nil {
			panic(fmt.Errorf("could not create disk: %w", err))
		}
	}
	if dumpStats {
		d = timed_disk.New(d)
	}

	fs := super.MkFsSuper(d)
	bc := bcache.MkBcache(d, common.NBUF)
	l := fslog.MkLog(bc, fs)
	st := &benchState{fs: fs, bc: bc, l: l}

	if opblocks*uint64(nthread) > fs.NData() {
		panic("data region too small for thread count; increase -size")
	}

	// warmup, unless the run is too short to bother (a 0s duration
	// runs exactly one operation per thread)
	if duration > 500*time.Millisecond {
		run(st, 500*time.Millisecond, opblocks, nthread)
	}
	if dumpStats {
		d.(*timed_disk.Disk).ResetStats()
	}

	count := run(st, duration, opblocks, nthread)
	fmt.Printf("log-bench: %v %v ops/sec\n", nthread, float64(count)/duration.Seconds())

	if dumpStats {
		d.(*timed_disk.Disk).WriteStats(os.Stderr)
	}
	d.Close()
}

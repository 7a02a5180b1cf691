package common

import (
	"github.com/tchajed/goose/machine/disk"
)

const (
	// MAXOPBLOCKS is the most blocks a single operation may stage.
	// Callers that need more must split their work into several
	// operations, each atomic on its own.
	MAXOPBLOCKS uint64 = 10

	// LOGBLOCKS is the admission capacity of the log: room for three
	// worst-case operations in flight at once.
	LOGBLOCKS uint64 = 3 * MAXOPBLOCKS

	// LOGDISKBLOCKS is the on-disk footprint of the log region: the
	// header block followed by LOGBLOCKS staging blocks.
	LOGDISKBLOCKS uint64 = 1 + LOGBLOCKS

	NBUF uint64 = 64 // in-memory buffer cache slots

	HDRMETA  = uint64(8) // space for the block count
	HDRADDRS = (disk.BlockSize - HDRMETA) / 8
)

type Bnum = uint64

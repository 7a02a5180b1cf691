// Package pgalloc hands out fixed-size pages from a preallocated
// arena. The buffer cache draws its block buffers from here instead
// of allocating them ad hoc.
package pgalloc

import (
	"sync"

	"github.com/tchajed/goose/machine/disk"
)

const noPage = ^uint64(0)

// Junk patterns for freed and freshly allocated pages, to catch
// dangling refs.
const (
	freeJunk  byte = 1
	allocJunk byte = 5
)

type Pool struct {
	mu    *sync.Mutex
	pages []disk.Block // arena slices, fixed at creation
	free  []bool
	next  []uint64 // freelist links, indexed by page
	head  uint64   // first free page, noPage when exhausted
	nfree uint64
}

func MkPool(npages uint64) *Pool {
	arena := make([]byte, npages*disk.BlockSize)
	p := &Pool{
		mu:    new(sync.Mutex),
		pages: make([]disk.Block, npages),
		free:  make([]bool, npages),
		next:  make([]uint64, npages),
		head:  noPage,
	}
	for i := uint64(0); i < npages; i++ {
		p.pages[i] = arena[i*disk.BlockSize : (i+1)*disk.BlockSize : (i+1)*disk.BlockSize]
		fill(p.pages[i], freeJunk)
		p.free[i] = true
		p.next[i] = p.head
		p.head = i
	}
	p.nfree = npages
	return p
}

// Alloc returns a junk-filled page, or nil if the pool is exhausted.
func (p *Pool) Alloc() disk.Block {
	p.mu.Lock()
	if p.head == noPage {
		p.mu.Unlock()
		return nil
	}
	i := p.head
	p.head = p.next[i]
	p.free[i] = false
	p.nfree--
	pg := p.pages[i]
	p.mu.Unlock()
	fill(pg, allocJunk)
	return pg
}

// Free returns a page to the pool. Panics if pg did not come from
// Alloc on this pool or was already freed.
func (p *Pool) Free(pg disk.Block) {
	p.mu.Lock()
	i, ok := p.lookup(pg)
	if !ok {
		p.mu.Unlock()
		panic("pgalloc: bad free")
	}
	if p.free[i] {
		p.mu.Unlock()
		panic("pgalloc: double free")
	}
	fill(pg, freeJunk)
	p.free[i] = true
	p.next[i] = p.head
	p.head = i
	p.nfree++
	p.mu.Unlock()
}

func (p *Pool) NumFree() uint64 {
	p.mu.Lock()
	n := p.nfree
	p.mu.Unlock()
	return n
}

// lookup identifies a page by the address of its backing array.
func (p *Pool) lookup(pg disk.Block) (uint64, bool) {
	if uint64(len(pg)) != disk.BlockSize {
		return 0, false
	}
	for i := range p.pages {
		if &p.pages[i][0] == &pg[0] {
			return uint64(i), true
		}
	}
	return 0, false
}

func fill(pg disk.Block, junk byte) {
	for i := range pg {
		pg[i] = junk
	}
}

package queue

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
)

type BlockKind byte

const (
	BlockNode BlockKind = iota
	BlockString
)

func (k BlockKind) String() string {
	switch k {
	case BlockNode:
		return "node"
	case BlockString:
		return "string"
	}
	return fmt.Sprintf("block(%d)", byte(k))
}

// BlockID names one block handed out by an Allocator. The zero value is
// never returned for a live block by TrackingAllocator.
type BlockID uint64

// Allocator accounts for the blocks a Queue acquires and gives back. Alloc
// may refuse a block, in which case the queue leaves itself unchanged.
type Allocator interface {
	Alloc(kind BlockKind, size int) (BlockID, error)
	Release(id BlockID)
}

type heapAllocator struct{}

func (heapAllocator) Alloc(BlockKind, int) (BlockID, error) { return 0, nil }
func (heapAllocator) Release(BlockID)                       {}

type BlockStats struct {
	Allocs    int
	Releases  int
	Live      int
	LiveBytes int
}

type AllocStats struct {
	Nodes           BlockStats
	Strings         BlockStats
	PeakBytes       int
	Failures        int
	InvalidReleases int
}

// Live is the number of blocks acquired and not yet released.
func (s AllocStats) Live() int {
	return s.Nodes.Live + s.Strings.Live
}

func (s AllocStats) LiveBytes() int {
	return s.Nodes.LiveBytes + s.Strings.LiveBytes
}

// TrackingAllocator records every block handed to a queue by identity, so a
// leaked block stays live and a second release of the same block is counted
// as invalid. Setting FailPercent makes Alloc refuse that share of requests.
// The zero value is ready to use and injects failures from seed 1; a nil
// *TrackingAllocator hands out blocks without recording them.
type TrackingAllocator struct {
	FailPercent int

	rng    *rand.Rand
	stats  AllocStats
	blocks map[BlockID]trackedBlock
	nextID BlockID
}

type trackedBlock struct {
	kind BlockKind
	size int
}

func NewTrackingAllocator(seed int64) *TrackingAllocator {
	return &TrackingAllocator{rng: rand.New(rand.NewSource(seed))}
}

func (a *TrackingAllocator) Alloc(kind BlockKind, size int) (BlockID, error) {
	if a == nil {
		return 0, nil
	}

	block := a.block(kind)
	if block == nil {
		return 0, errors.Errorf("unknown block kind %d", byte(kind))
	}

	if a.FailPercent > 0 {
		if a.rng == nil {
			a.rng = rand.New(rand.NewSource(1))
		}
		if a.rng.Intn(100) < a.FailPercent {
			a.stats.Failures++
			return 0, errors.Wrapf(ErrAllocFailed, "%s block of %d bytes", kind, size)
		}
	}

	if a.blocks == nil {
		a.blocks = make(map[BlockID]trackedBlock)
	}
	a.nextID++
	a.blocks[a.nextID] = trackedBlock{kind: kind, size: size}

	block.Allocs++
	block.Live++
	block.LiveBytes += size
	if live := a.stats.LiveBytes(); live > a.stats.PeakBytes {
		a.stats.PeakBytes = live
	}

	return a.nextID, nil
}

// Release gives back a block. Unknown or already released ids are counted
// in InvalidReleases and otherwise ignored.
func (a *TrackingAllocator) Release(id BlockID) {
	if a == nil {
		return
	}

	tracked, found := a.blocks[id]
	if !found {
		a.stats.InvalidReleases++
		return
	}
	delete(a.blocks, id)

	block := a.block(tracked.kind)
	block.Releases++
	block.Live--
	block.LiveBytes -= tracked.size
}

func (a *TrackingAllocator) Stats() AllocStats {
	if a == nil {
		return AllocStats{}
	}
	return a.stats
}

func (a *TrackingAllocator) Live() int {
	return a.Stats().Live()
}

func (a *TrackingAllocator) block(kind BlockKind) *BlockStats {
	switch kind {
	case BlockNode:
		return &a.stats.Nodes
	case BlockString:
		return &a.stats.Strings
	}
	return nil
}

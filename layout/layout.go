// Package layout carves the VDO data region into its four fixed
// partitions, per spec.md section 4.7.
package layout

import (
	"github.com/dm-vdo/vdoformat/forestsizing"
	"github.com/dm-vdo/vdoformat/internal/vdoerr"
)

// PartitionID identifies one of the four partitions a VDOLayout
// carves out of the data region.
type PartitionID int

const (
	PartitionBlockMap PartitionID = iota
	PartitionBlockAllocator
	PartitionRecoveryJournal
	PartitionSlabSummary
)

func (id PartitionID) String() string {
	switch id {
	case PartitionBlockMap:
		return "block_map"
	case PartitionBlockAllocator:
		return "block_allocator"
	case PartitionRecoveryJournal:
		return "recovery_journal"
	case PartitionSlabSummary:
		return "slab_summary"
	default:
		return "unknown"
	}
}

// Partition is one contiguous, disjoint run of physical blocks within
// a VDOLayout.
type Partition struct {
	ID             PartitionID
	StartingOffset uint64
	LengthBlocks   uint64
}

func (p Partition) End() uint64 { return p.StartingOffset + p.LengthBlocks }

// Layout is the logical (not on-disk) arrangement of the four VDO
// partitions inside the data region, anchored one block past the
// super block's own PBN.
type Layout struct {
	Partitions [4]Partition
	SlabCount  uint64
}

func (l *Layout) Partition(id PartitionID) Partition { return l.Partitions[id] }

// Make carves {block-map, block-allocator, recovery-journal,
// slab-summary} in that fixed order out of [startingOffset,
// physicalBlocks), per spec.md section 4.7. logicalBlocks and
// rootCount size the block-map partition via forestsizing; slabSize
// rounds the block-allocator partition down to a whole number of
// slabs.
func Make(physicalBlocks, startingOffset, logicalBlocks, rootCount, recoveryJournalSize, slabSummarySize, slabSize uint64) (*Layout, error) {
	if startingOffset >= physicalBlocks {
		return nil, vdoerr.Wrap(vdoerr.KindOutOfRange, "starting offset %d is not before physical block count %d", startingOffset, physicalBlocks)
	}

	blockMapSize := forestsizing.BlockMapPageCountForRoots(logicalBlocks, rootCount)

	remaining := physicalBlocks - startingOffset
	needed := blockMapSize + recoveryJournalSize + slabSummarySize
	if needed >= remaining {
		return nil, vdoerr.Wrap(vdoerr.KindOutOfRange, "fixed-size partitions (%d blocks) leave no room in a %d-block region for the block allocator", needed, remaining)
	}

	allocatorSize := remaining - needed
	allocatorSize -= allocatorSize % slabSize
	slabCount := allocatorSize / slabSize
	if slabCount == 0 {
		return nil, vdoerr.Wrap(vdoerr.KindOutOfRange, "block-allocator region of %d blocks holds zero %d-block slabs", remaining-needed, slabSize)
	}

	offset := startingOffset
	blockMap := Partition{ID: PartitionBlockMap, StartingOffset: offset, LengthBlocks: blockMapSize}
	offset += blockMapSize
	allocator := Partition{ID: PartitionBlockAllocator, StartingOffset: offset, LengthBlocks: allocatorSize}
	offset += allocatorSize
	journal := Partition{ID: PartitionRecoveryJournal, StartingOffset: offset, LengthBlocks: recoveryJournalSize}
	offset += recoveryJournalSize
	summary := Partition{ID: PartitionSlabSummary, StartingOffset: offset, LengthBlocks: slabSummarySize}
	offset += slabSummarySize

	if offset > physicalBlocks {
		return nil, vdoerr.Wrap(vdoerr.KindOutOfRange, "layout of %d blocks overruns device of %d blocks", offset-startingOffset, physicalBlocks-startingOffset)
	}

	return &Layout{
		Partitions: [4]Partition{blockMap, allocator, journal, summary},
		SlabCount:  slabCount,
	}, nil
}

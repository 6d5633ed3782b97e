package volume

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"

	"github.com/dm-vdo/vdoformat/layer"
	"github.com/dm-vdo/vdoformat/layout"
)

// slabSummaryEntrySize is the packed, no-padding on-disk size of one
// slab's summary entry: a free-block count and a dirty flag.
const slabSummaryEntrySize = 5

// MaxSlabs bounds how many slab summary entries a partition ever
// needs to hold, independent of how many slabs a given volume
// actually has. Sizing the partition against this fixed ceiling
// (rather than the volume's real slab count) avoids the circularity
// of needing the depot's size to compute the depot's size.
const MaxSlabs = 8192

// SlabSummarySize returns the number of blocks a slab-summary
// partition occupies for a given block size.
func SlabSummarySize(blockSize uint64) uint64 {
	return ceilDiv(MaxSlabs*slabSummaryEntrySize, blockSize)
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// InitSlabSummary seeds part with one entry per slab in [0, slabCount),
// each recording dataBlocksPerSlab free blocks and a clear dirty bit,
// followed by zero-filled padding for the unused entries up to
// MaxSlabs. dirty tracks which slabs have been touched since the last
// checkpoint; at format time no slab has been touched.
func InitSlabSummary(l layer.Layer, part layout.Partition, slabCount, dataBlocksPerSlab uint64) error {
	dirty := bitset.New(uint(MaxSlabs))

	buf, err := l.AllocateIOBuffer(int(part.LengthBlocks)*layer.BlockSize, "slab-summary")
	if err != nil {
		return err
	}
	for slab := uint64(0); slab < slabCount && slab < MaxSlabs; slab++ {
		off := slab * slabSummaryEntrySize
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(dataBlocksPerSlab))
		if dirty.Test(uint(slab)) {
			buf[off+4] = 1
		}
	}
	return l.WriteBlocks(part.StartingOffset, int(part.LengthBlocks), buf)
}

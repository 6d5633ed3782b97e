// Package geometry builds, validates, and persists the volume
// geometry block: the single block at physical block number 0 that
// identifies a device as a VDO and anchors the data region, per
// spec.md section 4.4.
package geometry

import (
	"encoding/binary"

	uuid "github.com/satori/go.uuid"

	"github.com/dm-vdo/vdoformat/internal/checksum"
	"github.com/dm-vdo/vdoformat/internal/codec"
	"github.com/dm-vdo/vdoformat/internal/vdoerr"
	"github.com/dm-vdo/vdoformat/layer"
)

// magic is the fixed 8-byte signature every VDO geometry block opens
// with.
var magic = [8]byte{'d', 'm', 'v', 'd', 'o', '0', '0', '1'}

const (
	headerID        uint32 = 5
	headerMajor     uint32 = 5
	headerMinor     uint32 = 0
	maxKnownMinor   uint32 = 0
	payloadEnd             = 105 // offset just past the index-config, the meaningful part of the block
	magicOffset            = 0
	headerOffset           = 8
	releaseOffset          = 24
	checksumOffset         = 28
	nonceOffset            = 32
	uuidOffset             = 40
	partitionsOffset       = 56
	partitionEntrySize     = 20
	indexConfigOffset      = partitionsOffset + 2*partitionEntrySize // 96
)

// PartitionID names the two regions a geometry block carves the
// device into.
type PartitionID uint32

const (
	PartitionIndex PartitionID = iota
	PartitionData
)

// Partition is one row of the geometry block's fixed two-entry
// partition table.
type Partition struct {
	ID             PartitionID
	StartingOffset uint64
	LengthBlocks   uint64
}

// End returns the block number immediately past p.
func (p Partition) End() uint64 { return p.StartingOffset + p.LengthBlocks }

// MemoryClassMB is the dedup-index memory class, expressed in
// megabytes: 256, 512, or 768 for the three fixed classes, or any
// multiple of 1024 for an "Nx1GB" class.
type MemoryClassMB uint32

const (
	MemoryClass256MB MemoryClassMB = 256
	MemoryClass512MB MemoryClassMB = 512
	MemoryClass768MB MemoryClassMB = 768
)

// MemoryClassGB returns the memory class for n gigabytes of index
// memory, n >= 1.
func MemoryClassGB(n uint32) MemoryClassMB {
	return MemoryClassMB(n) * 1024
}

// IndexConfig is the dedup-index sizing and behavior the geometry
// block records, per spec.md section 3.
type IndexConfig struct {
	MemoryClass         MemoryClassMB
	CheckpointFrequency uint32
	Sparse              bool
}

// denseBlocksPerMB and sparseBlocksPerMB are the implementation-chosen ratios of on-disk
// index blocks to index memory: the UDS dedup-index sizing formula
// itself is out of scope (spec.md section 1), so this is a
// deterministic stand-in that only needs to be self-consistent, not a
// faithful replica of the real index's disk footprint. A sparse index
// is given a larger on-disk footprint per unit of configured memory,
// matching the real index's qualitative trade-off of less memory for
// more disk.
const (
	denseBlocksPerMB  = 4
	sparseBlocksPerMB = 40
)

// IndexBlocks computes how many blocks the dedup-index partition
// occupies for a given memory class and sparse setting.
func IndexBlocks(cfg IndexConfig) uint64 {
	perMB := uint64(denseBlocksPerMB)
	if cfg.Sparse {
		perMB = sparseBlocksPerMB
	}
	return uint64(cfg.MemoryClass) * perMB
}

// Geometry is the fully decoded volume geometry block.
type Geometry struct {
	ReleaseVersion uint32
	Nonce          uint64
	UUID           uuid.UUID
	Partitions     [2]Partition
	Index          IndexConfig
}

// IndexPartition returns the dedup-index partition entry.
func (g *Geometry) IndexPartition() Partition {
	return g.Partitions[PartitionIndex]
}

// DataPartition returns the data-region partition entry.
func (g *Geometry) DataPartition() Partition {
	return g.Partitions[PartitionData]
}

// Build lays out the dedup-index partition starting at physical block
// 1, sized per cfg, and the data-region partition immediately after
// it running to the end of a physicalBlocks-block device.
func Build(physicalBlocks uint64, releaseVersion uint32, nonce uint64, volumeUUID uuid.UUID, cfg IndexConfig) (*Geometry, error) {
	indexLen := IndexBlocks(cfg)
	dataOffset := 1 + indexLen
	if dataOffset >= physicalBlocks {
		return nil, vdoerr.Wrap(vdoerr.KindOutOfRange, "device of %d blocks is too small for a %d-block dedup index", physicalBlocks, indexLen)
	}
	return &Geometry{
		ReleaseVersion: releaseVersion,
		Nonce:          nonce,
		UUID:           volumeUUID,
		Partitions: [2]Partition{
			PartitionIndex: {ID: PartitionIndex, StartingOffset: 1, LengthBlocks: indexLen},
			PartitionData:  {ID: PartitionData, StartingOffset: dataOffset, LengthBlocks: physicalBlocks - dataOffset},
		},
		Index: cfg,
	}, nil
}

// ToBytes encodes g into one layer.BlockSize block.
func (g *Geometry) ToBytes() []byte {
	b := make([]byte, layer.BlockSize)
	copy(b[magicOffset:magicOffset+8], magic[:])
	codec.PutHeader(b[headerOffset:headerOffset+codec.HeaderSize], codec.Header{
		ID: headerID, Major: headerMajor, Minor: headerMinor, Size: payloadEnd - headerOffset - codec.HeaderSize,
	})
	binary.LittleEndian.PutUint32(b[releaseOffset:releaseOffset+4], g.ReleaseVersion)
	binary.LittleEndian.PutUint64(b[nonceOffset:nonceOffset+8], g.Nonce)
	copy(b[uuidOffset:uuidOffset+16], g.UUID.Bytes())

	for i, p := range g.Partitions {
		off := partitionsOffset + i*partitionEntrySize
		binary.LittleEndian.PutUint32(b[off:off+4], uint32(p.ID))
		binary.LittleEndian.PutUint64(b[off+4:off+12], p.StartingOffset)
		binary.LittleEndian.PutUint64(b[off+12:off+20], p.LengthBlocks)
	}

	binary.LittleEndian.PutUint32(b[indexConfigOffset:indexConfigOffset+4], uint32(g.Index.MemoryClass))
	binary.LittleEndian.PutUint32(b[indexConfigOffset+4:indexConfigOffset+8], g.Index.CheckpointFrequency)
	if g.Index.Sparse {
		b[indexConfigOffset+8] = 1
	}

	crc := checksum.Checksum(b[nonceOffset:])
	binary.LittleEndian.PutUint32(b[checksumOffset:checksumOffset+4], crc)
	return b
}

// FromBytes decodes and validates a geometry block, per spec.md
// section 4.4: magic first, then header/version, then checksum, then
// the data-region-offset invariant.
func FromBytes(b []byte) (*Geometry, error) {
	if len(b) != layer.BlockSize {
		return nil, vdoerr.Wrap(vdoerr.KindBadLength, "geometry block is %d bytes, expected %d", len(b), layer.BlockSize)
	}
	if string(b[magicOffset:magicOffset+8]) != string(magic[:]) {
		return nil, vdoerr.Wrap(vdoerr.KindBadMagic, "geometry magic mismatch")
	}
	hdr := codec.GetHeader(b[headerOffset : headerOffset+codec.HeaderSize])
	if err := codec.Validate(hdr, headerID, headerMajor, maxKnownMinor, int(payloadEnd-headerOffset-codec.HeaderSize)); err != nil {
		return nil, err
	}

	wantCRC := binary.LittleEndian.Uint32(b[checksumOffset : checksumOffset+4])
	gotCRC := checksum.Checksum(b[nonceOffset:])
	if wantCRC != gotCRC {
		return nil, vdoerr.Wrap(vdoerr.KindBadChecksum, "geometry checksum %x, expected %x", gotCRC, wantCRC)
	}

	g := &Geometry{
		ReleaseVersion: binary.LittleEndian.Uint32(b[releaseOffset : releaseOffset+4]),
		Nonce:          binary.LittleEndian.Uint64(b[nonceOffset : nonceOffset+8]),
	}
	volUUID, err := uuid.FromBytes(b[uuidOffset : uuidOffset+16])
	if err != nil {
		return nil, vdoerr.Wrap(vdoerr.KindCorrupt, "invalid volume uuid: %v", err)
	}
	g.UUID = volUUID

	for i := range g.Partitions {
		off := partitionsOffset + i*partitionEntrySize
		g.Partitions[i] = Partition{
			ID:             PartitionID(binary.LittleEndian.Uint32(b[off : off+4])),
			StartingOffset: binary.LittleEndian.Uint64(b[off+4 : off+12]),
			LengthBlocks:   binary.LittleEndian.Uint64(b[off+12 : off+20]),
		}
	}

	g.Index = IndexConfig{
		MemoryClass:        MemoryClassMB(binary.LittleEndian.Uint32(b[indexConfigOffset : indexConfigOffset+4])),
		CheckpointFrequency: binary.LittleEndian.Uint32(b[indexConfigOffset+4 : indexConfigOffset+8]),
		Sparse:              b[indexConfigOffset+8] != 0,
	}

	if g.DataPartition().StartingOffset == 0 {
		return nil, vdoerr.Wrap(vdoerr.KindCorrupt, "data region starts at block 0")
	}
	return g, nil
}

// Package volume implements the super block, slab-summary seeding,
// partition clearing, format orchestration, and post-format
// reconfiguration described in spec.md sections 4.8 through 4.11.
package volume

import (
	"encoding/binary"

	"github.com/dm-vdo/vdoformat/internal/checksum"
	"github.com/dm-vdo/vdoformat/internal/codec"
	"github.com/dm-vdo/vdoformat/internal/vdoerr"
	"github.com/dm-vdo/vdoformat/layer"
)

const (
	superBlockHeaderID    uint32 = 1
	superBlockHeaderMajor uint32 = 1
	superBlockHeaderMinor uint32 = 0

	releaseOffset   = codec.HeaderSize // 16
	checksumOffset  = releaseOffset + 4
	journalOffset   = checksumOffset + 4
	depotOffset     = journalOffset + recoveryJournalStateSize
	componentOffset = depotOffset + slabDepotStateSize
	superPayloadEnd = componentOffset + vdoComponentSize

	recoveryJournalStateSize = 16 // head_seq u64, tail_seq u64
	slabDepotStateSize       = 20 // first_block u64, slab_count u64, zone_count u32
	vdoComponentSize         = 1 + 8 + 8 + 4 + 4 + 4 + 4
)

// RecoveryJournalState is the on-disk recovery journal position
// recorded in the super block.
type RecoveryJournalState struct {
	HeadSequence uint64
	TailSequence uint64
}

// SlabDepotState is the on-disk slab depot summary recorded in the
// super block.
type SlabDepotState struct {
	FirstBlock uint64
	SlabCount  uint64
	ZoneCount  uint32
}

// VDOComponent is the on-disk VDO identity and slab-config snapshot
// recorded in the super block.
type VDOComponent struct {
	State               VDOState
	Nonce               uint64
	SlabSize            uint64
	SlabJournalBlocks   uint32
	RecoveryJournalSize uint32
	CompleteRecoveries  uint32
	ReadOnlyRecoveries  uint32
}

// SuperBlock is the fully decoded contents of the single block at the
// data region's origin.
type SuperBlock struct {
	ReleaseVersion  uint32
	RecoveryJournal RecoveryJournalState
	SlabDepot       SlabDepotState
	Component       VDOComponent
}

// EncodeSuperBlock serialises sb into one layer.BlockSize block,
// writing fields in the order spec.md section 4.9 specifies and
// computing the checksum over everything from the release version
// onward, last.
func EncodeSuperBlock(sb *SuperBlock) []byte {
	b := make([]byte, layer.BlockSize)

	codec.PutHeader(b[0:codec.HeaderSize], codec.Header{
		ID: superBlockHeaderID, Major: superBlockHeaderMajor, Minor: superBlockHeaderMinor,
		Size: superPayloadEnd - codec.HeaderSize,
	})
	binary.LittleEndian.PutUint32(b[releaseOffset:releaseOffset+4], sb.ReleaseVersion)

	j := journalOffset
	binary.LittleEndian.PutUint64(b[j:j+8], sb.RecoveryJournal.HeadSequence)
	binary.LittleEndian.PutUint64(b[j+8:j+16], sb.RecoveryJournal.TailSequence)

	d := depotOffset
	binary.LittleEndian.PutUint64(b[d:d+8], sb.SlabDepot.FirstBlock)
	binary.LittleEndian.PutUint64(b[d+8:d+16], sb.SlabDepot.SlabCount)
	binary.LittleEndian.PutUint32(b[d+16:d+20], sb.SlabDepot.ZoneCount)

	c := componentOffset
	b[c] = byte(sb.Component.State)
	binary.LittleEndian.PutUint64(b[c+1:c+9], sb.Component.Nonce)
	binary.LittleEndian.PutUint64(b[c+9:c+17], sb.Component.SlabSize)
	binary.LittleEndian.PutUint32(b[c+17:c+21], sb.Component.SlabJournalBlocks)
	binary.LittleEndian.PutUint32(b[c+21:c+25], sb.Component.RecoveryJournalSize)
	binary.LittleEndian.PutUint32(b[c+25:c+29], sb.Component.CompleteRecoveries)
	binary.LittleEndian.PutUint32(b[c+29:c+33], sb.Component.ReadOnlyRecoveries)

	crc := superBlockChecksum(b)
	binary.LittleEndian.PutUint32(b[checksumOffset:checksumOffset+4], crc)
	return b
}

// superBlockChecksum is the CRC-32C of the release version followed by
// everything after the checksum field.
func superBlockChecksum(b []byte) uint32 {
	covered := make([]byte, 0, checksumOffset-releaseOffset+len(b)-journalOffset)
	covered = append(covered, b[releaseOffset:checksumOffset]...)
	covered = append(covered, b[journalOffset:]...)
	return checksum.Checksum(covered)
}

// DecodeSuperBlock decodes and validates a super block, per spec.md
// section 4.9: header first (strict version gate, per section 8's
// P8), then checksum.
func DecodeSuperBlock(b []byte) (*SuperBlock, error) {
	if len(b) != layer.BlockSize {
		return nil, vdoerr.Wrap(vdoerr.KindBadLength, "super block is %d bytes, expected %d", len(b), layer.BlockSize)
	}
	hdr := codec.GetHeader(b[0:codec.HeaderSize])
	if err := codec.ValidateExact(hdr, superBlockHeaderID, superBlockHeaderMajor, superBlockHeaderMinor, superPayloadEnd-codec.HeaderSize); err != nil {
		return nil, err
	}

	wantCRC := binary.LittleEndian.Uint32(b[checksumOffset : checksumOffset+4])
	gotCRC := superBlockChecksum(b)
	if wantCRC != gotCRC {
		return nil, vdoerr.Wrap(vdoerr.KindBadChecksum, "super block checksum %x, expected %x", gotCRC, wantCRC)
	}

	sb := &SuperBlock{
		ReleaseVersion: binary.LittleEndian.Uint32(b[releaseOffset : releaseOffset+4]),
	}

	j := journalOffset
	sb.RecoveryJournal = RecoveryJournalState{
		HeadSequence: binary.LittleEndian.Uint64(b[j : j+8]),
		TailSequence: binary.LittleEndian.Uint64(b[j+8 : j+16]),
	}

	d := depotOffset
	sb.SlabDepot = SlabDepotState{
		FirstBlock: binary.LittleEndian.Uint64(b[d : d+8]),
		SlabCount:  binary.LittleEndian.Uint64(b[d+8 : d+16]),
		ZoneCount:  binary.LittleEndian.Uint32(b[d+16 : d+20]),
	}

	c := componentOffset
	sb.Component = VDOComponent{
		State:               VDOState(b[c]),
		Nonce:               binary.LittleEndian.Uint64(b[c+1 : c+9]),
		SlabSize:            binary.LittleEndian.Uint64(b[c+9 : c+17]),
		SlabJournalBlocks:   binary.LittleEndian.Uint32(b[c+17 : c+21]),
		RecoveryJournalSize: binary.LittleEndian.Uint32(b[c+21 : c+25]),
		CompleteRecoveries:  binary.LittleEndian.Uint32(b[c+25 : c+29]),
		ReadOnlyRecoveries:  binary.LittleEndian.Uint32(b[c+29 : c+33]),
	}

	return sb, nil
}

// WriteSuperBlock writes sb to physical block pbn, which must be the
// data region's origin.
func WriteSuperBlock(l layer.Layer, pbn uint64, sb *SuperBlock) error {
	buf, err := l.AllocateIOBuffer(layer.BlockSize, "super-block")
	if err != nil {
		return err
	}
	copy(buf, EncodeSuperBlock(sb))
	return l.WriteBlocks(pbn, 1, buf)
}

// LoadSuperBlock reads and decodes the super block at physical block
// pbn.
func LoadSuperBlock(l layer.Layer, pbn uint64) (*SuperBlock, error) {
	buf := make([]byte, layer.BlockSize)
	if err := l.ReadBlocks(pbn, 1, buf); err != nil {
		return nil, err
	}
	return DecodeSuperBlock(buf)
}

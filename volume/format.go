package volume

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/sirupsen/logrus"
	uuid "github.com/satori/go.uuid"

	"github.com/dm-vdo/vdoformat/forestsizing"
	"github.com/dm-vdo/vdoformat/geometry"
	"github.com/dm-vdo/vdoformat/internal/vdoerr"
	"github.com/dm-vdo/vdoformat/layer"
	"github.com/dm-vdo/vdoformat/layout"
	"github.com/dm-vdo/vdoformat/slabconfig"
)

// currentReleaseVersion is the release version this engine stamps
// into every geometry block and super block it writes.
const currentReleaseVersion uint32 = 1

// Config is the configuration surface a format accepts, per spec.md
// section 6.
type Config struct {
	// PhysicalBlocks, if nonzero, must equal the layer's block count.
	// Zero means "use the whole device".
	PhysicalBlocks uint64
	// LogicalBlocks, if zero, means "derive the maximum logical
	// capacity the data region can support".
	LogicalBlocks uint64

	SlabSize            uint64
	SlabJournalBlocks   uint64
	RecoveryJournalSize uint64

	// RootCount is the block-map tree root count. Zero selects
	// forestsizing.DefaultRootCount.
	RootCount uint64
}

func (c Config) rootCount() uint64 {
	if c.RootCount == 0 {
		return forestsizing.DefaultRootCount
	}
	return c.RootCount
}

// resolvePhysicalBlocks checks cfg.PhysicalBlocks against the layer's
// actual block count, per spec.md section 6.
func resolvePhysicalBlocks(cfg Config, deviceBlocks uint64) (uint64, error) {
	if cfg.PhysicalBlocks == 0 {
		return deviceBlocks, nil
	}
	if cfg.PhysicalBlocks != deviceBlocks {
		return 0, vdoerr.Wrap(vdoerr.KindOutOfRange, "configured physical_blocks %d does not match device size %d", cfg.PhysicalBlocks, deviceBlocks)
	}
	return cfg.PhysicalBlocks, nil
}

func drawNonce() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, vdoerr.Wrap(vdoerr.KindIOError, "drawing random nonce: %v", err)
	}
	return binary.LittleEndian.Uint64(buf[:]) ^ uint64(time.Now().UnixNano()), nil
}

// Format lays out and writes a complete VDO volume onto l, per the
// ten-step sequence in spec.md section 4.11. The geometry block at
// PBN 0 is written last, so a failure at any earlier step leaves the
// device unrecognisable as a VDO rather than half-valid (P5).
func Format(cfg Config, indexCfg geometry.IndexConfig, l layer.Layer) error {
	deviceBlocks, err := l.BlockCount()
	if err != nil {
		logrus.WithError(err).Error("reading device block count")
		return err
	}
	physicalBlocks, err := resolvePhysicalBlocks(cfg, deviceBlocks)
	if err != nil {
		logrus.WithError(err).Error("resolving physical block count")
		return err
	}

	slabCfg, err := slabconfig.Configure(layer.BlockSize, cfg.SlabSize, cfg.SlabJournalBlocks)
	if err != nil {
		logrus.WithError(err).Error("configuring slab layout")
		return err
	}

	nonce, err := drawNonce()
	if err != nil {
		logrus.WithError(err).Error("drawing format nonce")
		return err
	}
	volumeUUID := uuid.NewV4()
	logrus.WithFields(logrus.Fields{"physical_blocks": physicalBlocks, "nonce": nonce, "uuid": volumeUUID}).Info("formatting VDO volume")

	geo, err := geometry.Build(physicalBlocks, currentReleaseVersion, nonce, volumeUUID, indexCfg)
	if err != nil {
		logrus.WithError(err).Error("building volume geometry")
		return err
	}

	logrus.Info("clearing geometry block")
	if err := geometry.Clear(l); err != nil {
		logrus.WithError(err).Error("clearing geometry block")
		return err
	}

	rootCount := cfg.rootCount()
	slabSummarySize := SlabSummarySize(layer.BlockSize)
	dataRegion := geo.DataPartition()

	logicalBlocks := cfg.LogicalBlocks
	if logicalBlocks == 0 {
		budget := dataRegion.LengthBlocks - 1 - cfg.RecoveryJournalSize - slabSummarySize
		logicalBlocks = forestsizing.ComputeLogicalBlocks(budget)
		logrus.WithField("logical_blocks", logicalBlocks).Info("derived maximum logical capacity")
	}

	vdoLayout, err := layout.Make(dataRegion.End(), dataRegion.StartingOffset+1, logicalBlocks, rootCount, cfg.RecoveryJournalSize, slabSummarySize, cfg.SlabSize)
	if err != nil {
		logrus.WithError(err).Error("building partition layout")
		return err
	}

	logrus.Info("clearing block-map partition")
	if err := ClearPartition(l, vdoLayout.Partition(layout.PartitionBlockMap)); err != nil {
		logrus.WithError(err).Error("clearing block-map partition")
		return err
	}
	logrus.Info("clearing recovery-journal partition")
	if err := ClearPartition(l, vdoLayout.Partition(layout.PartitionRecoveryJournal)); err != nil {
		logrus.WithError(err).Error("clearing recovery-journal partition")
		return err
	}
	logrus.Info("seeding slab-summary partition")
	if err := InitSlabSummary(l, vdoLayout.Partition(layout.PartitionSlabSummary), vdoLayout.SlabCount, slabCfg.DataBlocks); err != nil {
		logrus.WithError(err).Error("seeding slab-summary partition")
		return err
	}

	superBlockPBN := geo.DataPartition().StartingOffset
	sb := &SuperBlock{
		ReleaseVersion:  currentReleaseVersion,
		RecoveryJournal: RecoveryJournalState{HeadSequence: 1, TailSequence: 1},
		SlabDepot: SlabDepotState{
			FirstBlock: vdoLayout.Partition(layout.PartitionBlockAllocator).StartingOffset,
			SlabCount:  vdoLayout.SlabCount,
			ZoneCount:  1,
		},
		Component: VDOComponent{
			State:               StateNew,
			Nonce:               nonce,
			SlabSize:            cfg.SlabSize,
			SlabJournalBlocks:   uint32(cfg.SlabJournalBlocks),
			RecoveryJournalSize: uint32(cfg.RecoveryJournalSize),
			CompleteRecoveries:  0,
			ReadOnlyRecoveries:  0,
		},
	}
	logrus.Info("writing super block")
	if err := WriteSuperBlock(l, superBlockPBN, sb); err != nil {
		logrus.WithError(err).Error("writing super block")
		return err
	}

	logrus.Info("committing geometry")
	if err := geometry.Write(l, geo); err != nil {
		logrus.WithError(err).Error("committing geometry")
		return err
	}
	return nil
}

package slabconfig

import (
	"testing"

	"github.com/dm-vdo/vdoformat/internal/vdoerr"
)

const blockSize = 4096

func TestConfigureScenarioOne(t *testing.T) {
	cfg, err := Configure(blockSize, 8192, 224)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if cfg.DataBlocks+cfg.JournalBlocks+cfg.ReferenceCountBlocks != cfg.SlabBlocks {
		t.Fatalf("P3 violated: %+v", cfg)
	}
	if cfg.DataBlocks == 0 {
		t.Fatalf("expected at least one data block")
	}
}

func TestConfigureRejectsNonPowerOfTwo(t *testing.T) {
	_, err := Configure(blockSize, 8193, 224)
	if vdoerr.Classify(err) != vdoerr.KindOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE for non-power-of-two slab size, got %v", err)
	}
}

func TestConfigureRejectsSlabTooSmall(t *testing.T) {
	_, err := Configure(blockSize, 16, 1)
	if vdoerr.Classify(err) != vdoerr.KindOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE for too-small slab, got %v", err)
	}
}

func TestConfigureRejectsSlabTooLarge(t *testing.T) {
	_, err := Configure(blockSize, 1<<20, 1000)
	if vdoerr.Classify(err) != vdoerr.KindOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE for too-large slab, got %v", err)
	}
}

func TestConfigureRejectsJournalBelowMinimum(t *testing.T) {
	_, err := Configure(blockSize, 8192, 1)
	if vdoerr.Classify(err) != vdoerr.KindOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE for journal below minimum, got %v", err)
	}
}

func TestConfigureRejectsJournalTooLarge(t *testing.T) {
	_, err := Configure(blockSize, 8192, 4096)
	if vdoerr.Classify(err) != vdoerr.KindOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE for journal >= half the slab, got %v", err)
	}
}

func TestConfigureSlabSumsAcrossValidSizes(t *testing.T) {
	for _, slabBlocks := range []uint64{128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768} {
		slabBytes := slabBlocks * blockSize
		if slabBytes < minSlabSizeBytes || slabBytes > maxSlabSizeBytes {
			continue
		}
		journal := MinimumJournalBlocks(slabBlocks)
		cfg, err := Configure(blockSize, slabBlocks, journal)
		if err != nil {
			t.Fatalf("Configure(%d, %d): %v", slabBlocks, journal, err)
		}
		if cfg.JournalBlocks+cfg.ReferenceCountBlocks+cfg.DataBlocks != cfg.SlabBlocks {
			t.Fatalf("P3 violated for slab size %d: %+v", slabBlocks, cfg)
		}
		if cfg.DataBlocks == 0 {
			t.Fatalf("zero data blocks for slab size %d", slabBlocks)
		}
	}
}

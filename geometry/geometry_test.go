package geometry

import (
	"testing"

	deep "github.com/go-test/deep"
	uuid "github.com/satori/go.uuid"

	"github.com/dm-vdo/vdoformat/internal/vdoerr"
	"github.com/dm-vdo/vdoformat/layer"
)

func testConfig() IndexConfig {
	return IndexConfig{MemoryClass: MemoryClass256MB, CheckpointFrequency: 0, Sparse: false}
}

func TestBuildAndRoundTrip(t *testing.T) {
	g, err := Build(131072, 1, 0xdeadbeef, uuid.NewV4(), testConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b := g.ToBytes()
	got, err := FromBytes(b)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if diff := deep.Equal(g, got); diff != nil {
		t.Fatalf("round trip mismatch: %v", diff)
	}
}

func TestBuildPartitionInvariants(t *testing.T) {
	g, err := Build(131072, 1, 1, uuid.NewV4(), testConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx, data := g.IndexPartition(), g.DataPartition()
	if idx.StartingOffset != 1 {
		t.Fatalf("index partition should start at block 1, got %d", idx.StartingOffset)
	}
	if data.StartingOffset < 1+idx.LengthBlocks {
		t.Fatalf("data region must start at or after 1+index length")
	}
	if data.StartingOffset+data.LengthBlocks != 131072 {
		t.Fatalf("data region must run to the end of the device")
	}
}

func TestBuildDeviceTooSmall(t *testing.T) {
	_, err := Build(1, 1, 1, uuid.NewV4(), testConfig())
	if vdoerr.Classify(err) != vdoerr.KindOutOfRange {
		t.Fatalf("expected OUT_OF_RANGE, got %v", err)
	}
}

func TestWriteClearLoad(t *testing.T) {
	l := layer.NewMemory(131072)
	g, err := Build(131072, 1, 42, uuid.NewV4(), testConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := Write(l, g); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(l)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := deep.Equal(g, got); diff != nil {
		t.Fatalf("load mismatch: %v", diff)
	}

	if err := Clear(l); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := Load(l); vdoerr.Classify(err) != vdoerr.KindBadMagic {
		t.Fatalf("expected BAD_MAGIC after Clear, got %v", err)
	}
}

func TestLoadCorruptChecksum(t *testing.T) {
	l := layer.NewMemory(131072)
	g, _ := Build(131072, 1, 42, uuid.NewV4(), testConfig())
	if err := Write(l, g); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, layer.BlockSize)
	if err := l.ReadBlocks(0, 1, buf); err != nil {
		t.Fatalf("ReadBlocks: %v", err)
	}
	buf[40] ^= 0xff // flip a byte inside the uuid, after the checksum
	if err := l.WriteBlocks(0, 1, buf); err != nil {
		t.Fatalf("WriteBlocks: %v", err)
	}
	if _, err := Load(l); vdoerr.Classify(err) != vdoerr.KindBadChecksum {
		t.Fatalf("expected BAD_CHECKSUM, got %v", err)
	}
}

func TestLoadUnsupportedVersion(t *testing.T) {
	l := layer.NewMemory(131072)
	g, _ := Build(131072, 1, 42, uuid.NewV4(), testConfig())
	if err := Write(l, g); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, layer.BlockSize)
	if err := l.ReadBlocks(0, 1, buf); err != nil {
		t.Fatalf("ReadBlocks: %v", err)
	}
	buf[headerOffset+4] ^= 0xff // major version byte
	if err := l.WriteBlocks(0, 1, buf); err != nil {
		t.Fatalf("WriteBlocks: %v", err)
	}
	if _, err := Load(l); vdoerr.Classify(err) != vdoerr.KindUnsupportedVersion {
		t.Fatalf("expected UNSUPPORTED_VERSION, got %v", err)
	}
}

func TestIndexBlocksSparseLargerThanDense(t *testing.T) {
	dense := IndexBlocks(IndexConfig{MemoryClass: MemoryClass512MB, Sparse: false})
	sparse := IndexBlocks(IndexConfig{MemoryClass: MemoryClass512MB, Sparse: true})
	if sparse <= dense {
		t.Fatalf("sparse index (%d blocks) should occupy more disk than dense (%d blocks) for the same memory class", sparse, dense)
	}
}

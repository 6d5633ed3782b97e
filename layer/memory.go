package layer

import (
	"github.com/dm-vdo/vdoformat/internal/vdoerr"
)

// Memory is an in-memory Layer backed by a byte slice, used by tests
// the way the teacher's ext4 tests build fixtures out of byte slices
// rather than real devices.
type Memory struct {
	blocks [][]byte
	// FailWriteAt, if non-negative, makes the WriteBlocks call whose
	// starting pbn equals this value fail with IO_ERROR, simulating
	// a torn format (spec.md section 8, scenario 6).
	FailWriteAt int64
}

// NewMemory allocates an in-memory layer of blockCount zeroed blocks.
func NewMemory(blockCount uint64) *Memory {
	blocks := make([][]byte, blockCount)
	for i := range blocks {
		blocks[i] = make([]byte, BlockSize)
	}
	return &Memory{blocks: blocks, FailWriteAt: -1}
}

func (m *Memory) BlockCount() (uint64, error) {
	return uint64(len(m.blocks)), nil
}

func (m *Memory) AllocateIOBuffer(n int, tag string) ([]byte, error) {
	if n < 0 {
		return nil, vdoerr.Wrap(vdoerr.KindOutOfMemory, "negative buffer size requested for %q", tag)
	}
	return make([]byte, n), nil
}

func (m *Memory) ReadBlocks(pbn uint64, n int, buf []byte) error {
	if err := m.checkRange(pbn, n, len(buf)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		copy(buf[i*BlockSize:(i+1)*BlockSize], m.blocks[pbn+uint64(i)])
	}
	return nil
}

func (m *Memory) WriteBlocks(pbn uint64, n int, buf []byte) error {
	if err := m.checkRange(pbn, n, len(buf)); err != nil {
		return err
	}
	if m.FailWriteAt >= 0 && uint64(m.FailWriteAt) == pbn {
		return vdoerr.Wrap(vdoerr.KindIOError, "injected write failure at pbn %d", pbn)
	}
	for i := 0; i < n; i++ {
		copy(m.blocks[pbn+uint64(i)], buf[i*BlockSize:(i+1)*BlockSize])
	}
	return nil
}

func (m *Memory) checkRange(pbn uint64, n, bufLen int) error {
	if bufLen != n*BlockSize {
		return vdoerr.Wrap(vdoerr.KindOutOfRange, "buffer is %d bytes, expected %d for %d blocks", bufLen, n*BlockSize, n)
	}
	if pbn+uint64(n) > uint64(len(m.blocks)) {
		return vdoerr.Wrap(vdoerr.KindOutOfRange, "block range [%d, %d) exceeds device of %d blocks", pbn, pbn+uint64(n), len(m.blocks))
	}
	return nil
}

package volume

import (
	"github.com/dm-vdo/vdoformat/layer"
	"github.com/dm-vdo/vdoformat/layout"
)

// maxClearChunk caps how many blocks ClearPartition writes per call,
// per spec.md section 4.8.
const maxClearChunk = 4096

// clearChunkSize returns the largest power-of-two divisor of n,
// capped at maxClearChunk.
func clearChunkSize(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	chunk := uint64(1)
	for next := chunk * 2; next <= maxClearChunk && n%next == 0; next *= 2 {
		chunk = next
	}
	return chunk
}

// ClearPartition writes zero blocks across the entirety of part, in
// chunks of up to maxClearChunk blocks, overwriting every block of
// the partition exactly once.
func ClearPartition(l layer.Layer, part layout.Partition) error {
	chunk := clearChunkSize(part.LengthBlocks)
	buf, err := l.AllocateIOBuffer(int(chunk)*layer.BlockSize, "clear-"+part.ID.String())
	if err != nil {
		return err
	}
	for off := uint64(0); off < part.LengthBlocks; off += chunk {
		n := chunk
		if remaining := part.LengthBlocks - off; remaining < n {
			n = remaining
		}
		if err := l.WriteBlocks(part.StartingOffset+off, int(n), buf[:n*layer.BlockSize]); err != nil {
			return err
		}
	}
	return nil
}

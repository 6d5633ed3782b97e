package volume

import "testing"

func TestClearChunkSizeDivides(t *testing.T) {
	for _, n := range []uint64{1, 2, 3, 8, 2048, 4096, 8192, 7966, 131072} {
		chunk := clearChunkSize(n)
		if n%chunk != 0 {
			t.Fatalf("clearChunkSize(%d) = %d does not divide %d", n, chunk, n)
		}
		if chunk > maxClearChunk {
			t.Fatalf("clearChunkSize(%d) = %d exceeds cap %d", n, chunk, maxClearChunk)
		}
		if chunk&(chunk-1) != 0 {
			t.Fatalf("clearChunkSize(%d) = %d is not a power of two", n, chunk)
		}
	}
}

package geometry

import (
	"github.com/dm-vdo/vdoformat/layer"
)

// geometryPBN is the fixed physical block number of the geometry
// block.
const geometryPBN = 0

// Write encodes g and writes it to physical block 0. Per spec.md
// section 4.11, this is always the last write of a format: the
// device is only recognisable as a VDO once this call returns.
func Write(l layer.Layer, g *Geometry) error {
	buf, err := l.AllocateIOBuffer(layer.BlockSize, "geometry")
	if err != nil {
		return err
	}
	copy(buf, g.ToBytes())
	return l.WriteBlocks(geometryPBN, 1, buf)
}

// Clear overwrites physical block 0 with zeros, so a crash between
// Clear and the final Write leaves a device that will not be
// recognised as a VDO (spec.md section 4.4, 4.11 step 4).
func Clear(l layer.Layer) error {
	buf, err := l.AllocateIOBuffer(layer.BlockSize, "geometry-clear")
	if err != nil {
		return err
	}
	return l.WriteBlocks(geometryPBN, 1, buf)
}

// Load reads and validates the geometry block.
func Load(l layer.Layer) (*Geometry, error) {
	buf := make([]byte, layer.BlockSize)
	if err := l.ReadBlocks(geometryPBN, 1, buf); err != nil {
		return nil, err
	}
	return FromBytes(buf)
}

// Package codec implements the fixed-width little-endian header every
// encodable on-disk structure carries, per spec.md section 4.2.
package codec

import (
	"encoding/binary"

	"github.com/dm-vdo/vdoformat/internal/vdoerr"
)

// HeaderSize is the encoded size of Header in bytes.
const HeaderSize = 16

// Header is the {id, major, minor, size} prefix every encodable
// component carries.
type Header struct {
	ID    uint32
	Major uint32
	Minor uint32
	Size  uint32
}

// PutHeader writes h to b[0:HeaderSize]. b must have at least
// HeaderSize bytes.
func PutHeader(b []byte, h Header) {
	binary.LittleEndian.PutUint32(b[0:4], h.ID)
	binary.LittleEndian.PutUint32(b[4:8], h.Major)
	binary.LittleEndian.PutUint32(b[8:12], h.Minor)
	binary.LittleEndian.PutUint32(b[12:16], h.Size)
}

// GetHeader reads a Header from b[0:HeaderSize].
func GetHeader(b []byte) Header {
	return Header{
		ID:    binary.LittleEndian.Uint32(b[0:4]),
		Major: binary.LittleEndian.Uint32(b[4:8]),
		Minor: binary.LittleEndian.Uint32(b[8:12]),
		Size:  binary.LittleEndian.Uint32(b[12:16]),
	}
}

// Validate checks a decoded header against the header a decoder
// expects: wrong id is INCORRECT_COMPONENT, a different major or a minor
// beyond the known range is UNSUPPORTED_VERSION, and a declared size
// that disagrees with the buffer actually available is BAD_LENGTH.
func Validate(got Header, wantID, wantMajor, maxKnownMinor uint32, bufLen int) error {
	if got.ID != wantID {
		return vdoerr.Wrap(vdoerr.KindIncorrectComponent, "component id %d, expected %d", got.ID, wantID)
	}
	if got.Major != wantMajor || got.Minor > maxKnownMinor {
		return vdoerr.Wrap(vdoerr.KindUnsupportedVersion, "version %d.%d, supported up to %d.%d", got.Major, got.Minor, wantMajor, maxKnownMinor)
	}
	if int(got.Size) != bufLen {
		return vdoerr.Wrap(vdoerr.KindBadLength, "declared size %d, buffer is %d bytes", got.Size, bufLen)
	}
	return nil
}

// ValidateExact is Validate with a strict version gate: only the exact
// (wantMajor, wantMinor) pair is accepted, not any minor up to a known
// maximum. Super-block decoding uses this; geometry decoding does not.
func ValidateExact(got Header, wantID, wantMajor, wantMinor uint32, bufLen int) error {
	if got.ID != wantID {
		return vdoerr.Wrap(vdoerr.KindIncorrectComponent, "component id %d, expected %d", got.ID, wantID)
	}
	if got.Major != wantMajor || got.Minor != wantMinor {
		return vdoerr.Wrap(vdoerr.KindUnsupportedVersion, "version %d.%d, expected exactly %d.%d", got.Major, got.Minor, wantMajor, wantMinor)
	}
	if int(got.Size) != bufLen {
		return vdoerr.Wrap(vdoerr.KindBadLength, "declared size %d, buffer is %d bytes", got.Size, bufLen)
	}
	return nil
}

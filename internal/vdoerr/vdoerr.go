// Package vdoerr defines the error taxonomy shared across the format
// engine: a fixed set of sentinel errors any caller can compare against
// with errors.Is, plus a Kind classifier for mapping an error to a
// reporting code.
package vdoerr

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies a class of error from the taxonomy, independent of
// whatever context Wrap attached to it.
type Kind int

const (
	// KindUnknown is returned by Classify for an error not in the taxonomy.
	KindUnknown Kind = iota
	KindOutOfRange
	KindOutOfMemory
	KindIOError
	KindBadMagic
	KindUnsupportedVersion
	KindBadChecksum
	KindIncorrectComponent
	KindBadLength
	KindNotReadOnly
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindOutOfRange:
		return "OUT_OF_RANGE"
	case KindOutOfMemory:
		return "OUT_OF_MEMORY"
	case KindIOError:
		return "IO_ERROR"
	case KindBadMagic:
		return "BAD_MAGIC"
	case KindUnsupportedVersion:
		return "UNSUPPORTED_VERSION"
	case KindBadChecksum:
		return "BAD_CHECKSUM"
	case KindIncorrectComponent:
		return "INCORRECT_COMPONENT"
	case KindBadLength:
		return "BAD_LENGTH"
	case KindNotReadOnly:
		return "NOT_READ_ONLY"
	case KindCorrupt:
		return "CORRUPT"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors, one per row of spec.md's error taxonomy table.
var (
	ErrOutOfRange         = errors.New(KindOutOfRange.String())
	ErrOutOfMemory        = errors.New(KindOutOfMemory.String())
	ErrIOError            = errors.New(KindIOError.String())
	ErrBadMagic           = errors.New(KindBadMagic.String())
	ErrUnsupportedVersion = errors.New(KindUnsupportedVersion.String())
	ErrBadChecksum        = errors.New(KindBadChecksum.String())
	ErrIncorrectComponent = errors.New(KindIncorrectComponent.String())
	ErrBadLength          = errors.New(KindBadLength.String())
	ErrNotReadOnly        = errors.New(KindNotReadOnly.String())
	ErrCorrupt            = errors.New(KindCorrupt.String())
)

var sentinels = map[Kind]error{
	KindOutOfRange:         ErrOutOfRange,
	KindOutOfMemory:        ErrOutOfMemory,
	KindIOError:            ErrIOError,
	KindBadMagic:           ErrBadMagic,
	KindUnsupportedVersion: ErrUnsupportedVersion,
	KindBadChecksum:        ErrBadChecksum,
	KindIncorrectComponent: ErrIncorrectComponent,
	KindBadLength:          ErrBadLength,
	KindNotReadOnly:        ErrNotReadOnly,
	KindCorrupt:            ErrCorrupt,
}

// Wrap attaches context to one of the sentinel errors, preserving a
// cause chain so Classify and errors.Cause still find the sentinel.
func Wrap(kind Kind, format string, args ...interface{}) error {
	sentinel, ok := sentinels[kind]
	if !ok {
		sentinel = errors.New(kind.String())
	}
	return pkgerrors.Wrapf(sentinel, format, args...)
}

// Classify walks err's cause chain and reports which taxonomy member,
// if any, it wraps.
func Classify(err error) Kind {
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

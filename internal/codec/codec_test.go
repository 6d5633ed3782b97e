package codec

import (
	"testing"

	"github.com/dm-vdo/vdoformat/internal/vdoerr"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{ID: 5, Major: 5, Minor: 0, Size: 64}
	b := make([]byte, HeaderSize)
	PutHeader(b, h)
	got := GetHeader(b)
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestValidateIncorrectComponent(t *testing.T) {
	err := Validate(Header{ID: 1, Major: 5, Minor: 0, Size: 10}, 5, 5, 0, 10)
	if vdoerr.Classify(err) != vdoerr.KindIncorrectComponent {
		t.Fatalf("expected INCORRECT_COMPONENT, got %v", err)
	}
}

func TestValidateUnsupportedVersion(t *testing.T) {
	err := Validate(Header{ID: 5, Major: 6, Minor: 0, Size: 10}, 5, 5, 0, 10)
	if vdoerr.Classify(err) != vdoerr.KindUnsupportedVersion {
		t.Fatalf("expected UNSUPPORTED_VERSION for major mismatch, got %v", err)
	}

	err = Validate(Header{ID: 5, Major: 5, Minor: 3, Size: 10}, 5, 5, 1, 10)
	if vdoerr.Classify(err) != vdoerr.KindUnsupportedVersion {
		t.Fatalf("expected UNSUPPORTED_VERSION for minor too new, got %v", err)
	}
}

func TestValidateBadLength(t *testing.T) {
	err := Validate(Header{ID: 5, Major: 5, Minor: 0, Size: 99}, 5, 5, 0, 10)
	if vdoerr.Classify(err) != vdoerr.KindBadLength {
		t.Fatalf("expected BAD_LENGTH, got %v", err)
	}
}

func TestValidateOK(t *testing.T) {
	err := Validate(Header{ID: 5, Major: 5, Minor: 0, Size: 10}, 5, 5, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateExactRejectsNewerMinor(t *testing.T) {
	// Unlike Validate, ValidateExact has no "up to a known maximum"
	// leniency: any minor other than the exact expected one is rejected.
	err := ValidateExact(Header{ID: 1, Major: 1, Minor: 1, Size: 10}, 1, 1, 0, 10)
	if vdoerr.Classify(err) != vdoerr.KindUnsupportedVersion {
		t.Fatalf("expected UNSUPPORTED_VERSION, got %v", err)
	}
}

func TestValidateExactOK(t *testing.T) {
	err := ValidateExact(Header{ID: 1, Major: 1, Minor: 0, Size: 10}, 1, 1, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestErrorKinds_AreDistinctAndWrappable(t *testing.T) {
	kinds := []error{
		ErrAuth, ErrUnauthorized, ErrDirectoryResolution, ErrChecksumIO, ErrValidation,
		ErrSliceUpload, ErrFinalize, ErrPollTimeout, ErrPollFailed, ErrShareCreation, ErrUsage,
	}
	for i, k := range kinds {
		wrapped := fmt.Errorf("%w: context", k)
		if !errors.Is(wrapped, k) {
			t.Fatalf("kind %d not matched through wrapping", i)
		}
		for j, other := range kinds {
			if i != j && errors.Is(wrapped, other) {
				t.Fatalf("kind %d unexpectedly matches kind %d", i, j)
			}
		}
	}
}

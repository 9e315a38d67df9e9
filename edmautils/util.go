package edmautils

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

func CheckPow2[T constraints.Unsigned | constraints.Signed](number T, name string) error {
	if number&(number-1) != 0 {
		return errors.Wrapf(ErrPowerOfTwo, "%s is %d", name, number)
	}
	return nil
}

// IsAligned reports whether value is a multiple of alignment, which must be a power of two
func IsAligned(value uint32, alignment uint32) bool {
	DebugCheckPow2(alignment, "alignment")
	return value&(alignment-1) == 0
}

// CheckRange returns ErrInvalidParam wrapped with the field name when value is not below limit
func CheckRange[T constraints.Unsigned](value T, limit T, name string) error {
	if value >= limit {
		return errors.Wrapf(ErrInvalidParam, "%s is %d, must be less than %d", name, value, limit)
	}
	return nil
}

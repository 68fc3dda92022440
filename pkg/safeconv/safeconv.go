// Package safeconv holds checked integer conversions that panic on overflow.
package safeconv

// maxInt is the largest value an int can hold on this platform.
const maxInt = int(^uint(0) >> 1)

// MustUintToInt converts uint to int, panicking on overflow. Use only where
// overflow is logically impossible.
func MustUintToInt(v uint) int {
	if v > uint(maxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}

// MustIntToUint converts int to uint, panicking on negative input. Use only
// where negative values are logically impossible.
func MustIntToUint(v int) uint {
	if v < 0 {
		panic("safeconv: negative int to uint conversion")
	}

	return uint(v)
}

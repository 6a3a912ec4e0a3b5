// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to validate and size FFT
transforms. All functions are O(1), allocation free and safe to call from the
frame loop.

	size := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(2048)     // true
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Subtracting one
// before taking the bit length keeps exact powers unchanged (8 stays 8 rather
// than doubling to 16). Non-positive sizes return 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size, or 0 when size is
// not positive.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of 2 has a
// single set bit, so clearing the lowest set bit with n&(n-1) leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// SPDX-License-Identifier: MIT
package analysis

import "reactive/internal/uniform"

// Resample fills dst with a nearest-neighbour resample of src: texel i takes
// src[floor(i*len(src)/TextureSize)]. No filtering is applied, so a long
// source aliases; the cost stays O(TextureSize) whatever len(src) is. An
// empty src zeroes dst.
func Resample(dst *uniform.Texture, src []byte) {
	n := len(src)
	if n == 0 {
		clear(dst[:])
		return
	}
	for i := range dst {
		dst[i] = src[i*n/uniform.TextureSize]
	}
}

// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"testing"

	"reactive/internal/uniform"
)

func TestResampleLengths(t *testing.T) {
	// texel -> source index, worked by hand from floor(i*n/512).
	tests := []struct {
		n    int
		taps map[int]int
	}{
		{1, map[int]int{0: 0, 255: 0, 511: 0}},
		{100, map[int]int{1: 0, 5: 0, 6: 1, 256: 50, 511: 99}},
		{1024, map[int]int{0: 0, 1: 2, 255: 510, 511: 1022}},
		{4096, map[int]int{1: 8, 100: 800, 511: 4088}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("source %d", tt.n), func(t *testing.T) {
			// Values repeat every 251 samples, so indices 512 apart still differ.
			src := make([]byte, tt.n)
			for i := range src {
				src[i] = byte(i % 251)
			}

			var dst uniform.Texture
			Resample(&dst, src)

			if len(dst) != uniform.TextureSize {
				t.Fatalf("texture length = %d", len(dst))
			}
			for texel, idx := range tt.taps {
				if want := byte(idx % 251); dst[texel] != want {
					t.Errorf("dst[%d] = %d, want src[%d] = %d", texel, dst[texel], idx, want)
				}
			}
		})
	}
}

func TestResampleKnownMappings(t *testing.T) {
	src := make([]byte, 4096)
	for i := range src {
		src[i] = byte(i / 8)
	}
	var dst uniform.Texture
	Resample(&dst, src)
	// Every 8th sample is taken when downsampling by 8; 4088/8 wraps to 255.
	if dst[1] != 1 || dst[511] != 255 {
		t.Errorf("unexpected downsample: dst[1]=%d dst[511]=%d", dst[1], dst[511])
	}

	Resample(&dst, []byte{42})
	for i, v := range dst {
		if v != 42 {
			t.Fatalf("dst[%d] = %d, single sample should fill the texture", i, v)
		}
	}
}

func TestResampleEmptyZeroes(t *testing.T) {
	var dst uniform.Texture
	dst[0], dst[511] = 9, 9
	Resample(&dst, nil)
	if dst != (uniform.Texture{}) {
		t.Error("empty source should zero the texture")
	}
}

func TestResampleZeroAllocs(t *testing.T) {
	var dst uniform.Texture
	src := make([]byte, 1024)
	allocs := testing.AllocsPerRun(100, func() {
		Resample(&dst, src)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Resample, got %.1f", allocs)
	}
}

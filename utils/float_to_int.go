// SPDX-License-Identifier: EPL-2.0

package utils

// FloatToInt scales x in [-1,1] to a signed integer of the given bit depth.
// Out of range input is clamped.
func FloatToInt(x float32, bits int) int {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Full scale is one below the power of two so +1 does not overflow.
	full := float64(int64(1)<<(bits-1) - 1)
	return int(float64(x) * full)
}

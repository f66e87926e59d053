package adc

import "math"

// ConvertUnipolar converts volt to a 10-bit code for the reference voltage
// ref, rounding half up. Values out of range saturate.
func ConvertUnipolar(volt, ref float64) uint16 {
	if ref <= 0 {
		return 0
	}
	code := math.Floor(volt/ref*1023 + 0.5)
	switch {
	case code < 0:
		return 0
	case code > 1023:
		return 1023
	}
	return uint16(code)
}

// ConvertBipolar converts the differential voltage volt to a signed 10-bit
// code in two's complement, rounding half up. Values out of range saturate
// at -512 and 511.
func ConvertBipolar(volt, ref float64) uint16 {
	if ref <= 0 {
		return 0
	}
	code := math.Floor(volt/ref*512 + 0.5)
	switch {
	case code < -512:
		code = -512
	case code > 511:
		code = 511
	}
	return uint16(int16(code)) & 0x3ff
}

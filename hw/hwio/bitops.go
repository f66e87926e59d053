package hwio

// 8-bit operations
func GetBit8(v uint8, n uint) bool {
	return GetBiti8(v, n) != 0
}

func GetBiti8(v uint8, n uint) uint8 {
	return v >> (n) & 0x01
}

func SetBit8v(v *uint8, n uint) {
	*v |= (1 << n)
}

func ClearBit8v(v *uint8, n uint) {
	*v &= ^(1 << n)
}

func FlipBit8(v *uint8, n uint) {
	*v ^= (1 << n)
}

func ClearBits8(v *uint8, mask uint8) {
	*v &= ^mask
}

// SetBitTo8 sets or clears bit n of v.
func SetBitTo8(v *uint8, n uint, set bool) {
	if set {
		SetBit8v(v, n)
	} else {
		ClearBit8v(v, n)
	}
}

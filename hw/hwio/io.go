package hwio

// BankIO8 is the byte-wide access contract of a memory cell. Read8 and Write8
// are total: unsupported accesses log a warning and read as 0 (or drop the
// written value), they never fail.
type BankIO8 interface {
	// Read8 reads a byte from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

// BitIO8 is implemented by cells having dedicated single-bit accessors, for
// which a read-modify-write of the whole byte would trigger side effects.
type BitIO8 interface {
	SetBit8(addr uint16, n uint)
	ClearBit8(addr uint16, n uint)
}

// BitGetter is implemented by cells having a dedicated single-bit getter.
type BitGetter interface {
	GetBit8(addr uint16, n uint) bool
}

// Invalider is implemented by cells standing for addresses with no memory
// behind them.
type Invalider interface {
	IsInvalid() bool
}

// SetBit8 sets bit n of the cell. Cells without bit accessors are updated
// with a read-modify-write of the whole byte.
func SetBit8(io BankIO8, addr uint16, n uint) {
	if bio, ok := io.(BitIO8); ok {
		bio.SetBit8(addr, n)
		return
	}
	val := io.Read8(addr, false)
	val |= 1 << n
	io.Write8(addr, val)
}

// ClearBit8 clears bit n of the cell. Cells without bit accessors are updated
// with a read-modify-write of the whole byte.
func ClearBit8(io BankIO8, addr uint16, n uint) {
	if bio, ok := io.(BitIO8); ok {
		bio.ClearBit8(addr, n)
		return
	}
	val := io.Read8(addr, false)
	val &^= 1 << n
	io.Write8(addr, val)
}

// GetBit8Of reports whether bit n of the cell is set.
func GetBit8Of(io BankIO8, addr uint16, n uint) bool {
	if bg, ok := io.(BitGetter); ok {
		return bg.GetBit8(addr, n)
	}
	return GetBit8(io.Read8(addr, false), n)
}

// IsInvalid reports whether io stands for an invalid address.
func IsInvalid(io BankIO8) bool {
	inv, ok := io.(Invalider)
	return ok && inv.IsInvalid()
}

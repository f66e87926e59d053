package hwio

import "fmt"

const (
	NumBits  = 0x10000            // 16-bit data address space
	wordSize = 64                 // using 64-bit words
	numWords = NumBits / wordSize // 1024 words exactly
)

// Bitset is a set of addresses covering the whole data address space. Zero
// value is an empty set (all bits cleared).
type Bitset struct {
	words [numWords]uint64
}

// Set sets the bit at index i.
func (b *Bitset) Set(i uint) {
	b.words[i/wordSize] |= 1 << (i % wordSize)
}

// Clear clears the bit at index i.
func (b *Bitset) Clear(i uint) {
	b.words[i/wordSize] &^= 1 << (i % wordSize)
}

// Test returns true if the bit at index i is set.
func (b *Bitset) Test(i uint) bool {
	return (b.words[i/wordSize] & (1 << (i % wordSize))) != 0
}

func checkRange(start, end uint) {
	if start >= end || end > NumBits {
		panic(fmt.Sprintf("invalid range [%d, %d)", start, end))
	}
}

// SetRange sets all bits in the half-open interval [start, end).
// It panics if start >= end or end > NumBits.
func (b *Bitset) SetRange(start, end uint) {
	checkRange(start, end)
	b.applyRange(start, end, func(w *uint64, mask uint64) { *w |= mask })
}

// ClearRange clears all bits in the half-open interval [start, end).
// It panics if start >= end or end > NumBits.
func (b *Bitset) ClearRange(start, end uint) {
	checkRange(start, end)
	b.applyRange(start, end, func(w *uint64, mask uint64) { *w &^= mask })
}

func (b *Bitset) applyRange(start, end uint, apply func(w *uint64, mask uint64)) {
	startWord := start / wordSize
	endWord := (end - 1) / wordSize
	startBit := start % wordSize
	endBit := (end - 1) % wordSize

	if startWord == endWord {
		apply(&b.words[startWord], ((uint64(1)<<(endBit-startBit+1))-1)<<startBit)
		return
	}

	apply(&b.words[startWord], ^uint64(0)<<startBit)
	for i := startWord + 1; i < endWord; i++ {
		apply(&b.words[i], ^uint64(0))
	}
	apply(&b.words[endWord], (uint64(1)<<(endBit+1))-1)
}

// Reset clears all bits in the Bitset.
func (b *Bitset) Reset() {
	clear(b.words[:])
}

// SetAll sets all bits in the Bitset.
func (b *Bitset) SetAll() {
	for i := range b.words {
		b.words[i] = ^uint64(0)
	}
}

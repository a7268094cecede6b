package pipe

import "math/bits"

// bitmap is a fixed-size set of pipe indices packed into uint64 words.
type bitmap struct {
	words []uint64
}

func newBitmap(n int) bitmap {
	return bitmap{words: make([]uint64, (n+63)/64)}
}

func (b bitmap) set(i int)   { b.words[i/64] |= 1 << (i & 63) }
func (b bitmap) unset(i int) { b.words[i/64] &^= 1 << (i & 63) }

func (b bitmap) has(i int) bool {
	return b.words[i/64]&(1<<(i&63)) != 0
}

// reset clears every bit.
func (b bitmap) reset() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// count returns the number of set bits.
func (b bitmap) count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

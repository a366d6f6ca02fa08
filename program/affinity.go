package program

import (
	"fmt"
	"math/bits"
	"strings"
)

// AffinityBits is the width of an affinity tag.
const AffinityBits = 256

const affinityWords = AffinityBits / 64

// Affinity is a fixed-width bit pattern used to bind calls and events to
// functions. Bit 0 is the least significant bit of word 0.
type Affinity [affinityWords]uint64

// ParseAffinity reads a bit string, most significant bit first.
// Strings shorter than AffinityBits are zero-padded on the high end.
func ParseAffinity(s string) (Affinity, error) {
	var a Affinity
	if len(s) > AffinityBits {
		return a, fmt.Errorf("affinity %q: %d bits exceeds %d", s, len(s), AffinityBits)
	}
	for i := 0; i < len(s); i++ {
		bit := len(s) - 1 - i
		switch s[i] {
		case '0':
		case '1':
			a.Set(bit, true)
		default:
			return a, fmt.Errorf("affinity %q: invalid character %q", s, s[i])
		}
	}
	return a, nil
}

// MustParseAffinity is like ParseAffinity but panics on error.
func MustParseAffinity(s string) Affinity {
	a, err := ParseAffinity(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Bit reports whether bit i is set.
func (a Affinity) Bit(i int) bool {
	return a[i/64]&(1<<(uint(i)%64)) != 0
}

// Set sets or clears bit i.
func (a *Affinity) Set(i int, v bool) {
	mask := uint64(1) << (uint(i) % 64)
	if v {
		a[i/64] |= mask
	} else {
		a[i/64] &^= mask
	}
}

// Match returns the fraction of bit positions on which a and other agree.
func (a Affinity) Match(other Affinity) float64 {
	diff := 0
	for i := range a {
		diff += bits.OnesCount64(a[i] ^ other[i])
	}
	return float64(AffinityBits-diff) / AffinityBits
}

// OnesCount returns the number of set bits.
func (a Affinity) OnesCount() int {
	n := 0
	for _, w := range a {
		n += bits.OnesCount64(w)
	}
	return n
}

// String formats the affinity as a bit string, most significant bit first,
// trimmed to the highest set bit (at least one digit).
func (a Affinity) String() string {
	top := -1
	for i := AffinityBits - 1; i >= 0; i-- {
		if a.Bit(i) {
			top = i
			break
		}
	}
	if top < 0 {
		return "0"
	}
	var sb strings.Builder
	sb.Grow(top + 1)
	for i := top; i >= 0; i-- {
		if a.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

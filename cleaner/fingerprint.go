package cleaner

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Fingerprint returns a 64-bit SimHash of the lower-cased words of text.
// Texts that share most of their words land a few bits apart. Empty text
// yields 0.
func Fingerprint(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	var votes [64]int
	h := fnv.New64a()
	for _, w := range words {
		h.Reset()
		h.Write([]byte(w))
		sum := h.Sum64()
		for bit := 0; bit < 64; bit++ {
			if sum&(1<<bit) != 0 {
				votes[bit]++
			} else {
				votes[bit]--
			}
		}
	}

	var fp uint64
	for bit, v := range votes {
		if v > 0 {
			fp |= 1 << bit
		}
	}
	return fp
}

// NearDuplicate reports whether two non-empty fingerprints differ in at most
// maxBits bits.
func NearDuplicate(a, b uint64, maxBits int) bool {
	if a == 0 || b == 0 {
		return false
	}
	return bits.OnesCount64(a^b) <= maxBits
}

package simd

// byteRank holds empirical byte frequency ranks over English text, source
// code and binary samples. Lower rank = rarer byte = better probe for a
// skip-ahead search. The ranks only need to be roughly right; they steer
// heuristics, never correctness.
var byteRank = [256]byte{
	// 0x00-0x1F control characters
	0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0, 1, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	// 0x20-0x3F space, punctuation, digits
	255, 60, 140, 50, 40, 35, 30, 160, 130, 130, 80, 55, 200, 140, 210, 100,
	180, 190, 170, 150, 140, 140, 130, 120, 120, 120, 150, 100, 70, 160, 70, 50,
	// 0x40-0x5F '@', uppercase, brackets
	25, 120, 80, 90, 85, 130, 75, 70, 80, 115, 30, 35, 90, 85, 100, 105,
	80, 15, 100, 110, 115, 70, 45, 55, 20, 50, 10, 90, 60, 90, 20, 110,
	// 0x60-0x7F backtick, lowercase, braces
	30, 225, 140, 170, 165, 245, 135, 130, 150, 200, 25, 65, 175, 155, 195, 205,
	145, 15, 195, 200, 215, 150, 75, 95, 45, 120, 20, 85, 40, 85, 15, 0,
	// 0x80-0xFF rare in typical text
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
}

// ByteRank returns the empirical frequency rank of b. Lower is rarer.
func ByteRank(b byte) byte {
	return byteRank[b]
}

// RarePair describes the two rarest bytes of a needle, used to seed a
// paired-byte search.
type RarePair struct {
	Byte1  byte // rarest byte
	Index1 int  // its position in the needle
	Byte2  byte // second rarest byte, at a different position
	Index2 int
}

// SelectRareBytes picks the two rarest bytes of needle by frequency rank.
// For a one-byte needle both slots describe that byte. The two indexes
// always differ for needles of length >= 2, which is what MemchrPair
// needs for its fixed-offset probe.
func SelectRareBytes(needle []byte) RarePair {
	rb := RarePair{Byte1: needle[0], Index1: 0, Byte2: needle[0], Index2: 0}
	if len(needle) == 1 {
		return rb
	}

	rb.Byte2, rb.Index2 = needle[1], 1
	if byteRank[rb.Byte2] < byteRank[rb.Byte1] {
		rb.Byte1, rb.Index1, rb.Byte2, rb.Index2 = rb.Byte2, rb.Index2, rb.Byte1, rb.Index1
	}
	for i := 2; i < len(needle); i++ {
		r := byteRank[needle[i]]
		switch {
		case r < byteRank[rb.Byte1]:
			rb.Byte2, rb.Index2 = rb.Byte1, rb.Index1
			rb.Byte1, rb.Index1 = needle[i], i
		case r < byteRank[rb.Byte2]:
			rb.Byte2, rb.Index2 = needle[i], i
		}
	}
	return rb
}

package parquetio

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
)

var errTruncatedBloom = errors.New("parquetio: truncated bloom filter bytes")

// BloomFilter is a Bloom filter over the encoded byte form of a column's
// values, used to refine eq/in predicate push-down beyond row-group
// min/max statistics (§4.D). The sidecar format is implementation-defined
// but deterministic across runs (§6), which a from-scratch double-hashing
// filter over a fixed bit array trivially satisfies.
type BloomFilter struct {
	bits []byte
	k    int
	m    uint64
}

// NewFilter builds a filter sized for n expected distinct entries at the
// given target false-positive rate.
func NewFilter(n int, fpRate float64) *BloomFilter {
	if n < 1 {
		n = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	m, k := optimalParams(n, fpRate)
	return &BloomFilter{
		bits: make([]byte, (m+7)/8),
		k:    k,
		m:    uint64(m),
	}
}

func optimalParams(n int, p float64) (m, k int) {
	// Standard Bloom filter sizing formulas.
	const ln2Sq = 0.4804530139182014 // ln(2)^2
	mf := -1.0 * float64(n) * math.Log(p) / ln2Sq
	m = int(mf) + 1
	if m < 8 {
		m = 8
	}
	k = int(0.6931471805599453 * mf / float64(n))
	if k < 1 {
		k = 1
	}
	if k > 16 {
		k = 16
	}
	return m, k
}

func (f *BloomFilter) hashes(key []byte) (h1, h2 uint64) {
	h := fnv.New64a()
	h.Write(key)
	h1 = h.Sum64()
	h2bytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(h2bytes, h1)
	h2hash := fnv.New64a()
	h2hash.Write(h2bytes)
	h2hash.Write([]byte{0xff})
	h2 = h2hash.Sum64()
	return h1, h2
}

// Add inserts a key into the filter.
func (f *BloomFilter) Add(key []byte) {
	h1, h2 := f.hashes(key)
	for i := 0; i < f.k; i++ {
		bit := (h1 + uint64(i)*h2) % f.m
		f.bits[bit/8] |= 1 << (bit % 8)
	}
}

// MayContain reports whether key was possibly inserted (false positives are
// possible; false negatives are not).
func (f *BloomFilter) MayContain(key []byte) bool {
	h1, h2 := f.hashes(key)
	for i := 0; i < f.k; i++ {
		bit := (h1 + uint64(i)*h2) % f.m
		if f.bits[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// Bytes serializes the filter: [k:1][m:8][bits...].
func (f *BloomFilter) Bytes() []byte {
	out := make([]byte, 0, 9+len(f.bits))
	out = append(out, byte(f.k))
	var mb [8]byte
	binary.BigEndian.PutUint64(mb[:], f.m)
	out = append(out, mb[:]...)
	out = append(out, f.bits...)
	return out
}

// DecodeFilter parses bytes produced by BloomFilter.Bytes.
func DecodeFilter(b []byte) (*BloomFilter, error) {
	if len(b) < 9 {
		return nil, errTruncatedBloom
	}
	k := int(b[0])
	m := binary.BigEndian.Uint64(b[1:9])
	bits := append([]byte(nil), b[9:]...)
	return &BloomFilter{bits: bits, k: k, m: m}, nil
}

package generator

import "math/rand"

// RandomSource abstracts the source of randomness.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// RandSource wraps math/rand.
type RandSource struct {
	*rand.Rand
}

// NewRandSource returns a seeded source. The same seed replays the same run
// against the same host state.
func NewRandSource(seed int64) *RandSource {
	return &RandSource{rand.New(rand.NewSource(seed))}
}

// ByteSource uses a byte slice as a source of randomness. Once the data is
// exhausted every draw returns zero.
type ByteSource struct {
	data []byte
	pos  int
}

func NewByteSource(data []byte) *ByteSource {
	return &ByteSource{data: data}
}

func (s *ByteSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if s.pos+1 >= len(s.data) {
		if s.pos >= len(s.data) {
			return 0
		}
		v := int(s.data[s.pos])
		s.pos++
		return v % n
	}
	v := int(s.data[s.pos])<<8 | int(s.data[s.pos+1])
	s.pos += 2
	return v % n
}

func (s *ByteSource) Float64() float64 {
	if s.pos >= len(s.data) {
		return 0.0
	}
	v := int(s.data[s.pos])
	s.pos++
	return float64(v) / 256.0
}

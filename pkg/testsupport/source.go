package testsupport

// SequenceSource replays scripted draws. Intn returns the next scripted int
// reduced modulo n and Float64 the next scripted float; exhausted scripts
// repeat their last element, and an empty script yields zero.
type SequenceSource struct {
	Ints   []int
	Floats []float64
	ip, fp int
}

func (s *SequenceSource) Intn(n int) int {
	if n <= 0 || len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[min(s.ip, len(s.Ints)-1)]
	s.ip++
	if v < 0 {
		v = -v
	}
	return v % n
}

func (s *SequenceSource) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[min(s.fp, len(s.Floats)-1)]
	s.fp++
	return v
}

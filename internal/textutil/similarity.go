package textutil

// Cosine compares two term counts; 0 when either is empty.
func Cosine(a, b Terms) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	dot := 0
	for tok, n := range a {
		dot += n * b[tok]
	}
	if dot == 0 {
		return 0
	}
	return float64(dot) / (a.norm() * b.norm())
}

// Similarity compares the tokens of two transcripts. Two texts without any
// tokens are identical.
func Similarity(a, b string) float64 {
	ta, tb := CountTerms(a), CountTerms(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	return Cosine(ta, tb)
}

package util

// WordSize is the allocation granularity heap estimates are rounded to.
const WordSize = 8

// Align rounds n up to a multiple of WordSize.
func Align(n int64) int64 {
	return (n + WordSize - 1) &^ (WordSize - 1)
}

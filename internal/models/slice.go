package models

import "fmt"

// Slice is a contiguous byte range of a file, numbered from 1.
type Slice struct {
	Number int
	Offset int64
	Length int64
}

func (s Slice) String() string {
	return fmt.Sprintf("slice %d [%d, %d)", s.Number, s.Offset, s.Offset+s.Length)
}

// SliceCount returns ceil(size / sliceSize). A zero-byte file has no slices.
func SliceCount(size, sliceSize int64) int {
	if size <= 0 || sliceSize <= 0 {
		return 0
	}
	return int((size + sliceSize - 1) / sliceSize)
}

// PlanSlices partitions [0, size) into consecutive slices of sliceSize
// bytes; only the last one may be shorter.
func PlanSlices(size, sliceSize int64) []Slice {
	n := SliceCount(size, sliceSize)
	slices := make([]Slice, n)
	for i := 0; i < n; i++ {
		offset := int64(i) * sliceSize
		length := sliceSize
		if rest := size - offset; rest < length {
			length = rest
		}
		slices[i] = Slice{Number: i + 1, Offset: offset, Length: length}
	}
	return slices
}

package common

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used to drop secret key material once a run is over.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

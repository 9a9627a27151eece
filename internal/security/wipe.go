package security

// Wipe zeroes a byte slice holding sensitive material. The slice stays
// usable but its contents are gone.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

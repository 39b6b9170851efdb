//go:build !linux

package topology

// Detect has no host source to read outside Linux; the synthetic layout is
// used as-is.
func Detect(n uint32) *Table {
	return Synthetic(n)
}

// Pin is a no-op where thread affinity syscalls are unavailable.
func Pin(core uint32) error {
	return nil
}

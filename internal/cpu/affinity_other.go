//go:build !linux && !windows

package cpu

// pinToCore is a no-op: macOS and the BSDs offer no hard thread pinning.
func pinToCore(int) (int, error) {
	return -1, ErrAffinityUnsupported
}

// CurrentAffinity is not implemented on this platform.
func CurrentAffinity() ([]int, error) {
	return nil, ErrAffinityUnsupported
}

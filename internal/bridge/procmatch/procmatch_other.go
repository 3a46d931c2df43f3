//go:build !linux

package procmatch

// AncestorPids degrades to an empty chain on non-Linux platforms; the
// tool server's identity resolver simply falls through to its next
// priority (spec.md §4.I's explicit agentId, then allocated external id).
func AncestorPids(pid int, maxDepth int) []int {
	return nil
}

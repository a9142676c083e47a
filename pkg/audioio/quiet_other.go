//go:build !linux

package audioio

// QuietStderr runs fn. Only Linux audio stacks need silencing.
func QuietStderr(fn func()) {
	fn()
}

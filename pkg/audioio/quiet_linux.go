//go:build linux

package audioio

import (
	"os"

	"golang.org/x/sys/unix"
)

// QuietStderr runs fn with file descriptor 2 pointed at /dev/null. ALSA and
// JACK print configuration chatter there whenever a device is opened.
func QuietStderr(fn func()) {
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		fn()
		return
	}
	defer devNull.Close()

	saved, err := unix.Dup(unix.Stderr)
	if err != nil {
		fn()
		return
	}
	defer unix.Close(saved)

	if err := unix.Dup3(int(devNull.Fd()), unix.Stderr, 0); err != nil {
		fn()
		return
	}
	defer unix.Dup3(saved, unix.Stderr, 0)

	fn()
}

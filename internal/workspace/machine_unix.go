//go:build unix

package workspace

import "golang.org/x/sys/unix"

// osVersion returns the kernel release from uname(2)
func osVersion() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}

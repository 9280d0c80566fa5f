//go:build windows

package install

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// refusedErrnos are the errnos a dial fails with when nothing listens on the port;
// winsock reports its own code instead of the posix one.
var refusedErrnos = []error{windows.WSAECONNREFUSED, syscall.ECONNREFUSED}

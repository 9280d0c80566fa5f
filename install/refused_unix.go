//go:build !windows

package install

import "syscall"

// refusedErrnos are the errnos a dial fails with when nothing listens on the port.
var refusedErrnos = []error{syscall.ECONNREFUSED}

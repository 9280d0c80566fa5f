//go:build windows

package install

import (
	"context"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/windows"
)

func TestTransient_WinsockRefused(t *testing.T) {
	err := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connectex", windows.WSAECONNREFUSED)}

	reason, ok := transient(context.Background(), err, 0)
	assert.True(t, ok)
	assert.Equal(t, "could not connect", reason)
}

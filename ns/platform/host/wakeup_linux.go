//go:build linux

package host

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// eventfd counters are read and written as native-endian uint64.
var wakeToken = binary.NativeEndian.AppendUint64(nil, 1)

// createWakeFd returns one eventfd serving as both ends.
func createWakeFd() (int, int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	return fd, fd, err
}

//go:build windows

package traceengine

import (
	"errors"
	"net"
)

// Raw IPv4/TCP sockets, IP_HDRINCL, and poll() are not exposed through a
// portable Windows syscall surface the way they are on Unix
// (golang.org/x/sys/unix's raw-socket surface does not build here). Every
// raw-mode and connect-mode operation therefore fails with
// ErrPermissionDenied rather than emulate the behavior.

var errWouldBlock = errors.New("traceengine: would block")

func rawOpenICMP() (int, error)    { return -1, ErrPermissionDenied }
func rawOpenTCPRecv() (int, error) { return -1, ErrPermissionDenied }
func rawOpenTCPSend() (int, error) { return -1, ErrPermissionDenied }
func rawClose(fd int)              {}

func rawSendTo(fd int, buf []byte, dst net.IP, port int) error {
	return ErrPermissionDenied
}

func rawRecvFrom(fd int, buf []byte) (int, net.IP, error) {
	return 0, nil, errWouldBlock
}

func rawPoll(fds []int, timeoutMS int) ([]bool, error) {
	return make([]bool, len(fds)), nil
}

func connectSocketOpen(src net.IP, sport uint16, ttl int, dst net.IP, dstPort int) (int, error) {
	return -1, ErrPermissionDenied
}

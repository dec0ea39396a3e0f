//go:build linux || darwin || freebsd || netbsd || openbsd

package traceengine

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

// errWouldBlock is returned by rawRecvFrom when no datagram is currently
// available on a non-blocking socket; callers treat it as "nothing this
// wake-up", never as ErrParseFailure.
var errWouldBlock = errors.New("traceengine: would block")

// rawOpenICMP opens a non-blocking raw ICMPv4 receive socket.
func rawOpenICMP() (int, error) {
	return openRaw(unix.IPPROTO_ICMP)
}

// rawOpenTCPRecv opens a non-blocking raw TCP receive socket used to sniff
// destination SYN-ACK/RST replies.
func rawOpenTCPRecv() (int, error) {
	return openRaw(unix.IPPROTO_TCP)
}

// rawOpenTCPSend opens a raw TCP send socket with IP_HDRINCL enabled, for
// hand-crafted IPv4+TCP packets.
func rawOpenTCPSend() (int, error) {
	fd, err := openRaw(unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		unix.Close(fd)
		return -1, ErrPermissionDenied
	}
	return fd, nil
}

func openRaw(proto int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, proto)
	if err != nil {
		return -1, ErrPermissionDenied
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, ErrPermissionDenied
	}
	return fd, nil
}

func rawClose(fd int) {
	if fd >= 0 {
		unix.Close(fd)
	}
}

// rawSendTo writes buf (a complete IPv4 datagram, for HDRINCL sockets) to
// dst:port.
func rawSendTo(fd int, buf []byte, dst net.IP, port int) error {
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], dst.To4())
	return unix.Sendto(fd, buf, 0, sa)
}

// rawRecvFrom reads one datagram from fd. Returns errWouldBlock if nothing
// is available.
func rawRecvFrom(fd int, buf []byte) (int, net.IP, error) {
	n, from, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil, errWouldBlock
		}
		return 0, nil, err
	}
	var ip net.IP
	if sa4, ok := from.(*unix.SockaddrInet4); ok {
		ip = net.IP(sa4.Addr[:]).To4()
	}
	return n, ip, nil
}

// rawPoll multiplexes readiness over fds with a millisecond timeout,
// mirroring the engine's single-threaded cooperative wait (spec §5). A
// negative timeout is treated as zero, so the call never blocks indefinitely.
func rawPoll(fds []int, timeoutMS int) ([]bool, error) {
	if timeoutMS < 0 {
		timeoutMS = 0
	}
	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}
	_, err := unix.Poll(pfds, timeoutMS)
	if err != nil && err != unix.EINTR {
		return nil, err
	}
	ready := make([]bool, len(fds))
	for i, p := range pfds {
		ready[i] = p.Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0
	}
	return ready, nil
}

// connectSocketOpen opens a non-connected IPv4 stream socket, best-effort
// binds it to {src, sport}, sets the per-socket TTL, switches to
// non-blocking mode, and issues connect() toward dst:port. connect() is
// expected to return EINPROGRESS; the engine never reads status back from
// this socket (§4.4.2) — it correlates exclusively via the raw receive
// paths.
func connectSocketOpen(src net.IP, sport uint16, ttl int, dst net.IP, dstPort int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, ErrPermissionDenied
	}

	if src != nil {
		bindAddr := &unix.SockaddrInet4{Port: int(sport)}
		copy(bindAddr.Addr[:], src.To4())
		_ = unix.Bind(fd, bindAddr) // non-fatal: kernel picks on failure
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, ttl); err != nil {
		unix.Close(fd)
		return -1, err
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}

	connAddr := &unix.SockaddrInet4{Port: dstPort}
	copy(connAddr.Addr[:], dst.To4())
	err = unix.Connect(fd, connAddr)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, ErrSendFailed
	}
	return fd, nil
}

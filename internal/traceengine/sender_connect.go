package traceengine

import "net"

// connectSender issues non-blocking connect() calls on per-probe stream
// sockets (§4.4.2). The kernel emits the SYN with the requested TTL; the
// engine never reads connect status back from these sockets, so both send
// modes look identical to the correlator.
type connectSender struct {
	// open holds the sockets created for the current TTL, keyed by sport,
	// so they can be closed once the TTL's wait window ends.
	open map[uint16]int
}

func newConnectSender() *connectSender {
	return &connectSender{open: make(map[uint16]int)}
}

// send opens a stream socket bound to {src, sport}, sets its TTL, switches
// it non-blocking, and connects toward dst:dstPort.
func (s *connectSender) send(src, dst net.IP, dstPort, ttl int, sp uint16) error {
	fd, err := connectSocketOpen(src, sp, ttl, dst, dstPort)
	if err != nil {
		return ErrSendFailed
	}
	s.open[sp] = fd
	return nil
}

// closeWindow releases every socket opened for the TTL just finished.
func (s *connectSender) closeWindow() {
	for sp, fd := range s.open {
		rawClose(fd)
		delete(s.open, sp)
	}
}

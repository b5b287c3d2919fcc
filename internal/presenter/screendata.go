package presenter

import (
	"context"
	"log/slog"
	"net"

	"lanhub/internal/registry"
	"lanhub/internal/wire"
)

// PacketConn is the subset of *net.UDPConn the screen-data router
// needs.
type PacketConn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// ScreenDataRouter runs the screen-data datagram endpoint: it learns
// presenter addresses from any packet (even a zero-payload beacon) and
// fans out frames from the current leaseholder only, to everyone whose
// screen slot is known, including the leaseholder itself.
type ScreenDataRouter struct {
	conn  PacketConn
	reg   *registry.Registry
	coord *Coordinator
}

// NewScreenDataRouter constructs a router bound to conn.
func NewScreenDataRouter(conn PacketConn, reg *registry.Registry, coord *Coordinator) *ScreenDataRouter {
	return &ScreenDataRouter{conn: conn, reg: reg, coord: coord}
}

// Serve reads datagrams until ctx is done or the connection errors.
func (s *ScreenDataRouter) Serve(ctx context.Context) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("screen-data read error", "err", err)
			continue
		}
		s.handle(buf[:n], addr)
	}
}

func (s *ScreenDataRouter) handle(datagram []byte, addr *net.UDPAddr) {
	pid, payload, err := wire.ParseDatagram(datagram)
	if err != nil {
		slog.Debug("screen-data: short datagram dropped", "err", err)
		return
	}

	if p, ok := s.reg.Lookup(pid); ok {
		p.SetAddr(registry.AddrScreen, addr)
	}

	// Zero-payload datagrams are address-registration beacons and must
	// never be forwarded, even from the leaseholder.
	if len(payload) == 0 {
		return
	}

	if !s.coord.IsHolder(pid) {
		return
	}

	full := make([]byte, len(datagram))
	copy(full, datagram)

	for _, p := range s.reg.Snapshot() {
		target := p.Addr(registry.AddrScreen)
		if target == nil {
			continue
		}
		if _, err := s.conn.WriteToUDP(full, target); err != nil {
			slog.Debug("screen-data send failed", "recipient_id", p.ID, "err", err)
		}
	}
}

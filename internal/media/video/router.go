// Package video implements the Video Router: a UDP receiver that
// learns each participant's video peer address from its first packet
// and fans every frame out to every other live participant whose
// video address is known.
//
// Grounded on room.go's Broadcast (snapshot recipients under a read
// lock, release, then write) and client.go's readDatagrams (address
// learning from the first datagram), adapted from a WebTransport
// datagram channel onto a plain net.UDPConn.
package video

import (
	"context"
	"log/slog"
	"net"

	"lanhub/internal/registry"
	"lanhub/internal/wire"
)

// PacketConn is the subset of *net.UDPConn the router needs.
type PacketConn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// Router fans out video datagrams. It holds no buffer of its own
// beyond what's needed to read one packet; the last-frame cache is
// diagnostic-only and not required for correct fan-out, so it is kept
// as an optional side table rather than a hard dependency of the
// forwarding path.
type Router struct {
	conn PacketConn
	reg  *registry.Registry

	lastFrames lastFrameCache
}

// NewRouter constructs a Router bound to conn and reg.
func NewRouter(conn PacketConn, reg *registry.Registry) *Router {
	return &Router{conn: conn, reg: reg, lastFrames: newLastFrameCache()}
}

// Serve reads datagrams until ctx is done or the connection errors.
func (r *Router) Serve(ctx context.Context) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("video read error", "err", err)
			continue
		}
		r.handle(buf[:n], addr)
	}
}

func (r *Router) handle(datagram []byte, addr *net.UDPAddr) {
	senderID, payload, err := wire.ParseDatagram(datagram)
	if err != nil {
		slog.Debug("video: short datagram dropped", "err", err)
		return
	}

	sender, ok := r.reg.Lookup(senderID)
	if !ok {
		return
	}
	sender.SetAddr(registry.AddrVideo, addr)
	r.lastFrames.store(senderID, payload)

	full := make([]byte, len(datagram))
	copy(full, datagram)

	for _, p := range r.reg.Snapshot() {
		if p.ID == senderID {
			continue
		}
		target := p.Addr(registry.AddrVideo)
		if target == nil {
			continue
		}
		if _, err := r.conn.WriteToUDP(full, target); err != nil {
			slog.Debug("video send failed", "recipient_id", p.ID, "err", err)
		}
	}
}

// LatestFrame returns the most recently received opaque payload for a
// sender, for optional diagnostics only.
func (r *Router) LatestFrame(id uint32) ([]byte, bool) {
	return r.lastFrames.load(id)
}

// Forget drops any cached frame for a departed participant.
func (r *Router) Forget(id uint32) {
	r.lastFrames.delete(id)
}

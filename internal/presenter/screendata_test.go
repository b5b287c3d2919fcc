package presenter

import (
	"context"
	"net"
	"testing"
	"time"

	"lanhub/internal/registry"
	"lanhub/internal/wire"
)

func TestScreenDataForwardedOnlyFromHolder(t *testing.T) {
	reg := registry.New()
	a := reg.Register("alice", &stubControl{})
	b := reg.Register("bob", &stubControl{})
	coord := New()
	coord.Grant(a.ID)

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen server: %v", err)
	}
	defer serverConn.Close()

	clientA, _ := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	defer clientA.Close()
	clientB, _ := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	defer clientB.Close()

	router := NewScreenDataRouter(serverConn, reg, coord)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go router.Serve(ctx)

	serverAddr := serverConn.LocalAddr().(*net.UDPAddr)

	// Non-holder b sends a frame: must not be forwarded anywhere.
	clientB.WriteToUDP(wire.EncodeDatagram(b.ID, []byte("from-b")), serverAddr)
	time.Sleep(30 * time.Millisecond)

	// Holder a sends a frame: forwarded to both a and b (presenter sees own preview).
	clientA.WriteToUDP(wire.EncodeDatagram(a.ID, []byte("from-a")), serverAddr)
	time.Sleep(30 * time.Millisecond)

	clientA.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1024)
	n, _, err := clientA.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("presenter did not receive own preview: %v", err)
	}
	id, payload, _ := wire.ParseDatagram(buf[:n])
	if id != a.ID || string(payload) != "from-a" {
		t.Fatalf("a got id=%d payload=%q", id, payload)
	}

	clientB.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err = clientB.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("viewer did not receive presenter frame: %v", err)
	}
	id, payload, _ = wire.ParseDatagram(buf[:n])
	if id != a.ID || string(payload) != "from-a" {
		t.Fatalf("b got id=%d payload=%q", id, payload)
	}
}

func TestScreenDataBeaconNotForwarded(t *testing.T) {
	reg := registry.New()
	a := reg.Register("alice", &stubControl{})
	coord := New()
	coord.Grant(a.ID)

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen server: %v", err)
	}
	defer serverConn.Close()

	clientA, _ := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	defer clientA.Close()

	router := NewScreenDataRouter(serverConn, reg, coord)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go router.Serve(ctx)

	serverAddr := serverConn.LocalAddr().(*net.UDPAddr)
	clientA.WriteToUDP(wire.EncodeDatagram(a.ID, nil), serverAddr) // zero-payload beacon

	clientA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 1024)
	if _, _, err := clientA.ReadFromUDP(buf); err == nil {
		t.Fatalf("beacon datagram must not be forwarded")
	}

	if a.Addr(registry.AddrScreen) == nil {
		t.Fatalf("beacon should still register the sender's address")
	}
}

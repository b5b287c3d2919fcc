package hub

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"lanhub/internal/wire"
)

func startHub(t *testing.T) (*Hub, net.Listener) {
	t.Helper()
	h := New(Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.ServeControl(ctx, ln)
	return h, ln
}

func join(t *testing.T, addr net.Addr, username string) (net.Conn, *bufio.Reader, string) {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte("CONNECT:" + username + "\n")); err != nil {
		t.Fatalf("write connect: %v", err)
	}
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read id: %v", err)
	}
	return conn, r, strings.TrimRight(line, "\n")
}

func TestJoinAssignsIncreasingIDs(t *testing.T) {
	_, ln := startHub(t)

	_, _, idLineA := join(t, ln.Addr(), "alice")
	if idLineA != "ID:0" {
		t.Fatalf("a's id line = %q, want ID:0", idLineA)
	}
	_, _, idLineB := join(t, ln.Addr(), "bob")
	if idLineB != "ID:1" {
		t.Fatalf("b's id line = %q, want ID:1", idLineB)
	}
}

func TestRosterBroadcastOnJoinAndLeave(t *testing.T) {
	_, ln := startHub(t)

	connA, rA, _ := join(t, ln.Addr(), "alice")
	defer connA.Close()

	// alice sees her own USERS broadcast.
	line, err := rA.ReadString('\n')
	if err != nil {
		t.Fatalf("read roster a: %v", err)
	}
	assertRoster(t, line, []wire.RosterEntry{{ID: 0, Username: "alice"}})

	connB, rB, _ := join(t, ln.Addr(), "bob")
	defer connB.Close()

	// both now see a 2-entry roster.
	lineA2, _ := rA.ReadString('\n')
	assertRoster(t, lineA2, []wire.RosterEntry{{ID: 0, Username: "alice"}, {ID: 1, Username: "bob"}})
	lineB, _ := rB.ReadString('\n')
	assertRoster(t, lineB, []wire.RosterEntry{{ID: 0, Username: "alice"}, {ID: 1, Username: "bob"}})

	connA.Close()
	time.Sleep(50 * time.Millisecond)

	lineB2, err := rB.ReadString('\n')
	if err != nil {
		t.Fatalf("read roster after departure: %v", err)
	}
	assertRoster(t, lineB2, []wire.RosterEntry{{ID: 1, Username: "bob"}})
}

func assertRoster(t *testing.T, line string, want []wire.RosterEntry) {
	t.Helper()
	line = strings.TrimRight(line, "\n")
	const prefix = "USERS:"
	if !strings.HasPrefix(line, prefix) {
		t.Fatalf("line = %q, want USERS: prefix", line)
	}
	got, err := wire.DecodeRosterHex(strings.TrimPrefix(line, prefix))
	if err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("roster = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roster[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPingPong(t *testing.T) {
	_, ln := startHub(t)
	conn, r, _ := join(t, ln.Addr(), "alice")
	defer conn.Close()
	r.ReadString('\n') // roster

	conn.Write([]byte("PING\n"))
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if strings.TrimRight(line, "\n") != "PONG" {
		t.Fatalf("line = %q, want PONG", line)
	}
}

func TestChatFanOutIncludesSender(t *testing.T) {
	_, ln := startHub(t)
	connA, rA, _ := join(t, ln.Addr(), "alice")
	defer connA.Close()
	rA.ReadString('\n') // roster

	connB, rB, _ := join(t, ln.Addr(), "bob")
	defer connB.Close()
	rA.ReadString('\n') // roster update
	rB.ReadString('\n') // roster

	connA.Write([]byte("CHAT:hello all\n"))

	lineA, err := rA.ReadString('\n')
	if err != nil {
		t.Fatalf("read chat a: %v", err)
	}
	if !strings.HasPrefix(lineA, "CHAT:0:alice:") || !strings.HasSuffix(strings.TrimRight(lineA, "\n"), "hello all") {
		t.Fatalf("chat line (sender) = %q", lineA)
	}

	lineB, err := rB.ReadString('\n')
	if err != nil {
		t.Fatalf("read chat b: %v", err)
	}
	if !strings.HasPrefix(lineB, "CHAT:0:alice:") {
		t.Fatalf("chat line (recipient) = %q", lineB)
	}
}

func TestPrivateChatOnlyToListedAndSender(t *testing.T) {
	_, ln := startHub(t)
	connA, rA, _ := join(t, ln.Addr(), "alice")
	defer connA.Close()
	rA.ReadString('\n')

	connB, rB, _ := join(t, ln.Addr(), "bob")
	defer connB.Close()
	rA.ReadString('\n')
	rB.ReadString('\n')

	connC, rC, _ := join(t, ln.Addr(), "carol")
	defer connC.Close()
	rA.ReadString('\n')
	rB.ReadString('\n')
	rC.ReadString('\n')

	connA.Write([]byte("PRIVATE_CHAT:1:secret\n"))

	lineA, err := rA.ReadString('\n')
	if err != nil {
		t.Fatalf("read private chat a: %v", err)
	}
	if !strings.HasPrefix(lineA, "PRIVATE_CHAT:0|alice|") {
		t.Fatalf("private chat to sender = %q", lineA)
	}

	lineB, err := rB.ReadString('\n')
	if err != nil {
		t.Fatalf("read private chat b: %v", err)
	}
	if !strings.HasPrefix(lineB, "PRIVATE_CHAT:0|alice|") {
		t.Fatalf("private chat to recipient = %q", lineB)
	}

	connC.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, err := rC.ReadString('\n'); err == nil {
		t.Fatalf("carol should not receive the private chat")
	}
}

func TestRequestPresenterTextPath(t *testing.T) {
	_, ln := startHub(t)
	connA, rA, _ := join(t, ln.Addr(), "alice")
	defer connA.Close()
	rA.ReadString('\n')

	connA.Write([]byte("REQUEST_PRESENTER\n"))
	line, err := rA.ReadString('\n')
	if err != nil {
		t.Fatalf("read presenter notice: %v", err)
	}
	if strings.TrimRight(line, "\n") != "PRESENTER:0" {
		t.Fatalf("line = %q, want PRESENTER:0", line)
	}

	connA.Write([]byte("STOP_PRESENTING\n"))
	line, err = rA.ReadString('\n')
	if err != nil {
		t.Fatalf("read presenter-none notice: %v", err)
	}
	if strings.TrimRight(line, "\n") != "PRESENTER:None" {
		t.Fatalf("line = %q, want PRESENTER:None", line)
	}
}

func TestFileUploadBroadcastsOffer(t *testing.T) {
	h, ln := startHub(t)
	connA, rA, _ := join(t, ln.Addr(), "alice")
	defer connA.Close()
	rA.ReadString('\n')

	f, err := h.Files.Upload(0, "alice", "notes.txt", 5, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	line, err := rA.ReadString('\n')
	if err != nil {
		t.Fatalf("read file offer: %v", err)
	}
	want := formatFileOffer(f)
	if strings.TrimRight(line, "\n") != want {
		t.Fatalf("line = %q, want %q", line, want)
	}
}

func TestMaxUsersEnforced(t *testing.T) {
	h := New(Config{MaxUsers: 1})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.ServeControl(ctx, ln)

	connA, rA, idLine := join(t, ln.Addr(), "alice")
	defer connA.Close()
	if idLine != "ID:0" {
		t.Fatalf("first join should succeed, got %q", idLine)
	}
	rA.ReadString('\n') // roster

	connB, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer connB.Close()
	connB.Write([]byte("CONNECT:bob\n"))
	connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 32)
	n, err := connB.Read(buf)
	if err == nil && n > 0 {
		t.Fatalf("second join should be rejected, got %q", buf[:n])
	}
}

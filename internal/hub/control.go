package hub

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"lanhub/internal/registry"
)

// controlSession is the Control Session handle stored in a
// registry.Participant. Writes are serialized with a mutex so that
// concurrent broadcasts never interleave bytes on one stream.
type controlSession struct {
	conn net.Conn
	mu   sync.Mutex
}

func (c *controlSession) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

func (c *controlSession) Close() error {
	return c.conn.Close()
}

// ServeControl accepts control-stream connections on listener until
// ctx is done.
func (h *Hub) ServeControl(ctx context.Context, listener net.Listener) {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("control accept error", "err", err)
			continue
		}
		go h.handleControlConn(conn)
	}
}

func (h *Hub) handleControlConn(conn net.Conn) {
	r := bufio.NewReaderSize(conn, controlReadBufferBytes)

	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		conn.Close()
		return
	}
	line = strings.TrimRight(line, "\r\n")

	const connectPrefix = "CONNECT:"
	if !strings.HasPrefix(line, connectPrefix) {
		slog.Debug("control: first message was not CONNECT", "line", line)
		conn.Close()
		return
	}
	username := strings.TrimPrefix(line, connectPrefix)

	if h.Registry.Count() >= h.maxUsers {
		slog.Info("join rejected: hub full", "username", username)
		conn.Close()
		return
	}
	if h.Registry.UsernameTaken(username) {
		slog.Info("join rejected: username taken", "username", username)
		conn.Close()
		return
	}

	cs := &controlSession{conn: conn}
	p := h.Registry.Register(username, cs)
	slog.Info("participant joined", "participant_id", p.ID, "username", username)

	if err := p.WriteLine(formatID(p.ID)); err != nil {
		slog.Debug("control: write ID failed", "participant_id", p.ID, "err", err)
		h.departed(p)
		return
	}
	h.broadcastRoster()

	h.readLoop(p, r)
}

func formatID(id uint32) string {
	return "ID:" + strconv.FormatUint(uint64(id), 10)
}

// readLoop consumes newline-framed lines until EOF or a read error,
// dispatching each to the command handler. Read EOF or any read error
// is PEER-GONE: the participant is deregistered and cleaned up.
func (h *Hub) readLoop(p *registry.Participant, r *bufio.Reader) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if line != "" {
				h.dispatch(p, strings.TrimRight(line, "\r\n"))
			}
			h.departed(p)
			return
		}
		h.dispatch(p, strings.TrimRight(line, "\r\n"))
	}
}

// departed handles PEER-GONE: deregister, drop per-participant media
// state, release the presenter lease if held, and broadcast the new
// roster.
func (h *Hub) departed(p *registry.Participant) {
	if _, ok := h.Registry.Deregister(p.ID); !ok {
		return
	}
	p.Close()
	h.runCleanup(p.ID)
	slog.Info("participant left", "participant_id", p.ID, "username", p.Username)
	h.broadcastRoster()
}

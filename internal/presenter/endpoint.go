package presenter

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"

	"lanhub/internal/registry"
)

// granted is the fixed 7-byte ASCII reply on a successful lease grant.
var granted = []byte("GRANTED")

// denied is the fixed 7-byte ASCII reply on a denied grant. "DENIED"
// is only six letters; a trailing space pads it to the 7-byte frame
// width the wire format mandates for both replies.
var denied = []byte("DENIED ")

// readChunk is the buffer size for reads after GRANTED. Each Read's
// bytes are searched for "STOP" on their own, so a marker that TCP
// splits across two reads is not recognised.
const readChunk = 64

// ControlNotifier is called after a lease transition with the outside-
// the-lock PRESENTER broadcast. present=false means PRESENTER:None.
type ControlNotifier func(pid uint32, present bool)

// ServeControl accepts screen-control connections on listener until
// ctx is done: a 4-byte LE participant ID in, GRANTED/DENIED out, STOP
// or EOF releasing the lease.
func ServeControl(ctx context.Context, listener net.Listener, reg *registry.Registry, coord *Coordinator, notify ControlNotifier) {
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
			slog.Warn("screen-control accept error", "err", err)
			continue
		}
		go handleScreenControl(conn, reg, coord, notify)
	}
}

func handleScreenControl(conn net.Conn, reg *registry.Registry, coord *Coordinator, notify ControlNotifier) {
	defer conn.Close()

	var idBuf [4]byte
	if _, err := io.ReadFull(conn, idBuf[:]); err != nil {
		slog.Debug("screen-control: short id read", "err", err)
		return
	}
	pid := binary.LittleEndian.Uint32(idBuf[:])

	if _, ok := reg.Lookup(pid); !ok {
		conn.Write(denied)
		return
	}

	grantedOK, changed := coord.Grant(pid)
	if !grantedOK {
		conn.Write(denied)
		return
	}
	if _, err := conn.Write(granted); err != nil {
		slog.Debug("screen-control: write GRANTED failed", "participant_id", pid, "err", err)
	}
	if changed {
		notify(pid, true)
	}
	slog.Info("presenter lease granted", "participant_id", pid)

	defer func() {
		if coord.Release(pid) {
			notify(pid, false)
			slog.Info("presenter lease released", "participant_id", pid)
		}
	}()

	buf := make([]byte, readChunk)
	for {
		n, err := conn.Read(buf)
		if n > 0 && bytes.Contains(buf[:n], []byte("STOP")) {
			if coord.Release(pid) {
				notify(pid, false)
				slog.Info("presenter lease released", "participant_id", pid, "reason", "stop")
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("screen-control: read error", "participant_id", pid, "err", err)
			}
			return
		}
	}
}

package hub

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"lanhub/internal/registry"
)

// dispatch handles one inbound control-stream line. A malformed line
// is dropped and reading continues (the connection is never closed
// for a bad line, only for EOF or a write failure elsewhere).
func (h *Hub) dispatch(p *registry.Participant, line string) {
	switch {
	case line == "PING":
		p.WriteLine("PONG")

	case strings.HasPrefix(line, "CHAT:"):
		h.handleChat(p, strings.TrimPrefix(line, "CHAT:"))

	case strings.HasPrefix(line, "PRIVATE_CHAT:"):
		h.handlePrivateChat(p, strings.TrimPrefix(line, "PRIVATE_CHAT:"))

	case line == "REQUEST_PRESENTER":
		h.handleRequestPresenter(p)

	case line == "STOP_PRESENTING":
		h.handleStopPresenting(p)

	default:
		slog.Debug("control: malformed or unknown line dropped", "participant_id", p.ID, "line", line)
	}
}

func (h *Hub) handleChat(p *registry.Participant, text string) {
	h.recordChat(p.ID, p.Username, text)
	line := formatChat(p.ID, p.Username, timestamp(), text)
	h.pushToAll(line)
}

// handlePrivateChat parses "<csv-ids>:<text>". The split is limited to
// two fields so a colon inside the message text is preserved verbatim.
func (h *Hub) handlePrivateChat(p *registry.Participant, rest string) {
	fields := strings.SplitN(rest, ":", 2)
	if len(fields) != 2 {
		slog.Debug("control: malformed PRIVATE_CHAT dropped", "participant_id", p.ID)
		return
	}
	csvIDs, text := fields[0], fields[1]
	h.recordChat(p.ID, p.Username, text)

	line := formatPrivateChat(p.ID, p.Username, timestamp(), csvIDs, text)

	sent := map[uint32]bool{p.ID: true}
	p.WriteLine(line)

	for _, idStr := range strings.Split(csvIDs, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		id64, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			continue
		}
		id := uint32(id64)
		if sent[id] {
			continue
		}
		sent[id] = true
		if recipient, ok := h.Registry.Lookup(id); ok {
			recipient.WriteLine(line)
		}
	}
}

func (h *Hub) handleRequestPresenter(p *registry.Participant) {
	_, changed := h.Presenter.Grant(p.ID)
	if changed {
		h.broadcastPresenter(p.ID, false)
	}
}

func (h *Hub) handleStopPresenting(p *registry.Participant) {
	if h.Presenter.Release(p.ID) {
		h.broadcastPresenter(0, true)
	}
}

func (h *Hub) recordChat(id uint32, username, text string) {
	h.chatMu.Lock()
	h.chatHistory = append(h.chatHistory, chatEntry{participantID: id, username: username, text: text})
	h.chatMu.Unlock()
}

func timestamp() string {
	return time.Now().Format(timestampLayout)
}

// Package hub is the Hub Supervisor's orchestration layer: it wires
// the Participant Registry, Screen Coordinator, and File Exchange
// together, owns the Control Session protocol, and is the one place
// that broadcasts server-push notices over control streams.
//
// One package holds the control-channel state machine and the
// fan-out logic that the rest of the hub's components (registry,
// presenter, fileshare, media routers) are too leaf-level to own
// themselves.
package hub

import (
	"context"
	"log/slog"
	"sync"

	"lanhub/internal/fileshare"
	"lanhub/internal/presenter"
	"lanhub/internal/registry"
	"lanhub/internal/wire"
)

// mediaCleanup is the subset of a media component's surface the hub
// needs at participant departure, so registry and hub stay decoupled
// from the concrete video/audio packages.
type mediaCleanup interface {
	Forget(id uint32)
}

// Hub owns cross-component orchestration: the control session state
// machine, roster/chat/presenter/file notices, and the callbacks that
// let leaf components (Screen Coordinator, File Exchange) push notices
// without knowing about control streams themselves.
type Hub struct {
	Registry *registry.Registry
	Presenter *presenter.Coordinator
	Files     *fileshare.Store

	maxUsers int

	mu           sync.Mutex
	cleanupHooks []mediaCleanup

	chatMu      sync.Mutex
	chatHistory []chatEntry
}

type chatEntry struct {
	participantID uint32
	username      string
	text          string
}

// Config bundles the construction-time options.
type Config struct {
	MaxUsers      int
	MaxFileSize   int64
	MaxTotalBytes int64
}

// New constructs a Hub and wires the File Exchange's upload/delete
// callbacks to the control-session broadcast methods.
func New(cfg Config) *Hub {
	maxUsers := cfg.MaxUsers
	if maxUsers <= 0 {
		maxUsers = MaxUsers
	}

	h := &Hub{
		Registry:  registry.New(),
		Presenter: presenter.New(),
		Files:     fileshare.NewStore(cfg.MaxFileSize, cfg.MaxTotalBytes),
		maxUsers:  maxUsers,
	}

	h.Files.SetOnUpload(h.broadcastFileOffer)
	h.Files.SetOnDelete(h.broadcastFileDeleted)

	return h
}

// RegisterCleanup adds a component whose per-participant state must be
// dropped when a participant departs (the video frame cache and audio
// chunk buffer entries).
func (h *Hub) RegisterCleanup(c mediaCleanup) {
	h.mu.Lock()
	h.cleanupHooks = append(h.cleanupHooks, c)
	h.mu.Unlock()
}

// PresenterNotify is the ControlNotifier the screen-control endpoint
// calls after a lease transition (presenter.ControlNotifier).
func (h *Hub) PresenterNotify(pid uint32, present bool) {
	if present {
		h.broadcastPresenter(pid, false)
	} else {
		h.broadcastPresenter(0, true)
	}
}

func (h *Hub) broadcastRoster() {
	line := "USERS:" + wire.EncodeRosterHex(h.Registry.Roster())
	h.pushToAll(line)
}

func (h *Hub) broadcastPresenter(pid uint32, none bool) {
	var line string
	if none {
		line = "PRESENTER:None"
	} else {
		line = formatPresenterLine(pid)
	}
	h.pushToAll(line)
}

func (h *Hub) broadcastFileOffer(f *fileshare.File) {
	line := formatFileOffer(f)
	h.pushToAll(line)
	slog.Info("file offered", "file_id", f.ID, "filename", f.Filename, "uploader_id", f.UploaderID)
}

func (h *Hub) broadcastFileDeleted(fileID uint64) {
	line := formatFileDeleted(fileID)
	h.pushToAll(line)
	slog.Info("file deleted", "file_id", fileID)
}

// pushToAll snapshots the registry (releasing its lock immediately)
// then writes to every session. Registry.Snapshot already returns
// after releasing its own lock, so no lock is held across these
// network writes. A failed write closes that one session; its read
// loop then deregisters the participant.
func (h *Hub) pushToAll(line string) {
	for _, p := range h.Registry.Snapshot() {
		if err := p.WriteLine(line); err != nil {
			slog.Debug("control write failed", "participant_id", p.ID, "err", err)
			p.Close()
		}
	}
}

// runCleanup drops per-participant state in every registered media
// component and releases the presenter lease if this participant held
// it, broadcasting PRESENTER:None if so.
func (h *Hub) runCleanup(id uint32) {
	h.mu.Lock()
	hooks := append([]mediaCleanup(nil), h.cleanupHooks...)
	h.mu.Unlock()

	for _, c := range hooks {
		c.Forget(id)
	}

	if h.Presenter.Release(id) {
		h.broadcastPresenter(0, true)
	}
}

// Shutdown closes every live control session, forcing reader workers
// to observe EOF and exit.
func (h *Hub) Shutdown(_ context.Context) {
	for _, p := range h.Registry.Snapshot() {
		if err := p.Close(); err != nil {
			slog.Debug("control close failed during shutdown", "participant_id", p.ID, "err", err)
		}
	}
}

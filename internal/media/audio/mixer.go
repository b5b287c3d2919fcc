// Package audio implements the Audio Mixer: a UDP receiver that
// buffers the latest PCM chunk per participant, plus a periodic mix
// tick that produces a per-listener mix excluding the listener's own
// contribution.
//
// The receive path is grounded the same way as the video router
// (snapshot-then-release fan-out, address learning from the first
// packet); the mix algorithm itself is new, built on the same locking
// discipline as every other fan-out in this hub.
package audio

import (
	"context"
	"encoding/binary"
	"log/slog"
	"net"
	"sync"
	"time"

	"lanhub/internal/registry"
	"lanhub/internal/wire"
)

const (
	// SampleRate is the negotiated PCM sample rate (Hz).
	SampleRate = 44100
	// ChunkSamples is the number of samples per audio chunk.
	ChunkSamples = 1024
	// StaleThreshold is the maximum age of a buffered chunk before it
	// stops contributing to a mix.
	StaleThreshold = 500 * time.Millisecond
	// TickInterval is the mix cadence: CHUNK_SAMPLES / SAMPLE_RATE,
	// roughly 23ms.
	TickInterval = time.Second * time.Duration(ChunkSamples) / time.Duration(SampleRate)
)

// PacketConn is the subset of *net.UDPConn the mixer needs.
type PacketConn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

type chunk struct {
	samples    []int16
	receivedAt time.Time
}

// Mixer is the Audio Chunk Buffer plus its receive and mix loops.
type Mixer struct {
	conn PacketConn
	reg  *registry.Registry

	mu     sync.Mutex
	chunks map[uint32]chunk
}

// NewMixer constructs a Mixer bound to conn and reg.
func NewMixer(conn PacketConn, reg *registry.Registry) *Mixer {
	return &Mixer{conn: conn, reg: reg, chunks: make(map[uint32]chunk)}
}

// ServeReceive runs the datagram receive loop until ctx is done.
func (m *Mixer) ServeReceive(ctx context.Context) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, addr, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("audio read error", "err", err)
			continue
		}
		m.receive(buf[:n], addr)
	}
}

func (m *Mixer) receive(datagram []byte, addr *net.UDPAddr) {
	senderID, payload, err := wire.ParseDatagram(datagram)
	if err != nil {
		slog.Debug("audio: short datagram dropped", "err", err)
		return
	}

	sender, ok := m.reg.Lookup(senderID)
	if !ok {
		return
	}
	sender.SetAddr(registry.AddrAudio, addr)

	samples := decodePCM(payload)

	m.mu.Lock()
	m.chunks[senderID] = chunk{samples: samples, receivedAt: time.Now()}
	m.mu.Unlock()
}

// ServeMix runs the periodic mix loop at TickInterval until ctx is
// done.
func (m *Mixer) ServeMix(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Mixer) tick() {
	now := time.Now()

	m.mu.Lock()
	for id, c := range m.chunks {
		if now.Sub(c.receivedAt) > StaleThreshold {
			delete(m.chunks, id)
		}
	}
	live := make(map[uint32][]int16, len(m.chunks))
	for id, c := range m.chunks {
		live[id] = c.samples
	}
	m.mu.Unlock()

	for _, p := range m.reg.Snapshot() {
		target := p.Addr(registry.AddrAudio)
		if target == nil {
			continue
		}

		contributors := make([][]int16, 0, len(live))
		for id, samples := range live {
			if id == p.ID {
				continue
			}
			contributors = append(contributors, samples)
		}
		if len(contributors) == 0 {
			continue
		}

		mixed := mix(contributors)
		encoded := encodePCM(mixed)
		if _, err := m.conn.WriteToUDP(encoded, target); err != nil {
			slog.Debug("audio send failed", "recipient_id", p.ID, "err", err)
		}
	}
}

// Forget drops any buffered chunk for a departed participant.
func (m *Mixer) Forget(id uint32) {
	m.mu.Lock()
	delete(m.chunks, id)
	m.mu.Unlock()
}

// mix truncates every contributor to the shortest length, then
// produces the element-wise arithmetic mean in 64-bit float,
// clipped to the int16 range.
func mix(contributors [][]int16) []int16 {
	minLen := len(contributors[0])
	for _, c := range contributors[1:] {
		if len(c) < minLen {
			minLen = len(c)
		}
	}

	out := make([]int16, minLen)
	n := float64(len(contributors))
	for i := 0; i < minLen; i++ {
		var sum float64
		for _, c := range contributors {
			sum += float64(c[i])
		}
		out[i] = clipInt16(sum / n)
	}
	return out
}

func clipInt16(v float64) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}

func decodePCM(payload []byte) []int16 {
	n := len(payload) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(payload[i*2 : i*2+2]))
	}
	return out
}

func encodePCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}

package video

import "sync"

// lastFrameCache maps participant ID to the most recent opaque video
// payload, for diagnostics. It is never consulted by the forwarding
// path itself; fan-out is stateless per packet.
type lastFrameCache struct {
	mu     sync.Mutex
	frames map[uint32][]byte
}

func newLastFrameCache() lastFrameCache {
	return lastFrameCache{frames: make(map[uint32][]byte)}
}

func (c *lastFrameCache) store(id uint32, payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)

	c.mu.Lock()
	c.frames[id] = cp
	c.mu.Unlock()
}

func (c *lastFrameCache) load(id uint32) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.frames[id]
	return f, ok
}

func (c *lastFrameCache) delete(id uint32) {
	c.mu.Lock()
	delete(c.frames, id)
	c.mu.Unlock()
}

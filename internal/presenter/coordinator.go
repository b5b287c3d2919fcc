// Package presenter implements the Screen Coordinator: the single-slot
// presenter lease state machine and the screen-data fan-out rule that
// depends on it.
//
// Grounded on room.go's ClaimOwnership/TransferOwnership pair — a
// single mutable owner slot guarded by one mutex — generalized from
// "first participant owns forever" into a lease that can be granted,
// denied, and explicitly released.
package presenter

import "sync"

// None is the sentinel lease-holder value meaning the lease is FREE.
// Participant IDs are assigned upward from 0, so None (the largest
// uint32) is only reached by a real participant after 2^32-1 joins.
// New sets the holder to None; the zero value of Coordinator is not
// FREE, since its holder field is 0, a real participant ID.
const None = ^uint32(0)

// Coordinator owns the Presenter Lease. It has no knowledge of control
// streams or notices; callers are responsible for broadcasting
// PRESENTER notices after a state change, and must do so outside any
// lock held on the lease.
type Coordinator struct {
	mu     sync.Mutex
	holder uint32
}

// New returns a Coordinator with the lease FREE.
func New() *Coordinator {
	return &Coordinator{holder: None}
}

// Grant implements the FREE/BUSY lease transition table. It returns
// granted=true when pid now holds (or already held) the lease,
// and changed=true when this call caused a FREE→BUSY transition (i.e.
// a PRESENTER:pid notice is owed). A reconnect by the current holder
// reports granted=true, changed=false: no redundant notice.
func (c *Coordinator) Grant(pid uint32) (granted, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.holder {
	case None:
		c.holder = pid
		return true, true
	case pid:
		return true, false
	default:
		return false, false
	}
}

// Release clears the lease if and only if pid is the current holder.
// It reports changed=true when the lease transitioned BUSY(pid)→FREE,
// meaning a PRESENTER:None notice is owed. Releasing when pid is not
// the holder (or the lease is already FREE) is a no-op.
func (c *Coordinator) Release(pid uint32) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.holder != pid {
		return false
	}
	c.holder = None
	return true
}

// Current returns the present lease holder, or None.
func (c *Coordinator) Current() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holder
}

// IsHolder reports whether pid currently holds the lease. Used by the
// screen-data fan-out to decide whether an inbound frame originates
// from the leaseholder; frames from anyone else are discarded.
func (c *Coordinator) IsHolder(pid uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holder != None && c.holder == pid
}

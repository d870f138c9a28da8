package basecache

import "sync"

// Status is the lifecycle state of a Slot.
type Status int

const (
	// StatusFree means the slot holds no database; it sits in the
	// FREE beacon, available for reservation.
	StatusFree Status = iota
	// StatusIdle means the slot's handle is open but unowned, cold.
	StatusIdle
	// StatusIdleHot means the slot's handle is open but unowned, and
	// was released from contention recently enough to be considered hot.
	StatusIdleHot
	// StatusUsed means a goroutine currently owns the slot.
	StatusUsed
	// StatusClosing means the slot is being evicted: the close hook is
	// running with the global lock released, and no goroutine may
	// claim it until the transition to FREE completes.
	StatusClosing
	// StatusClosingForDeletion is StatusClosing with the extra promise
	// that any waiter unblocked during the transition receives
	// CodeContainerNotFound instead of being allowed to reacquire.
	StatusClosingForDeletion
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "FREE"
	case StatusIdle:
		return "IDLE"
	case StatusIdleHot:
		return "IDLE_HOT"
	case StatusUsed:
		return "USED"
	case StatusClosing:
		return "CLOSING"
	case StatusClosingForDeletion:
		return "CLOSING_FOR_DELETION"
	default:
		return "UNKNOWN"
	}
}

// beaconKind identifies which of the four lists a slot currently
// belongs to; beaconRemove uses it to find the head/tail pair to
// patch. The order within a list lives in the link indices plus the
// Cache's four beacon head/tail pairs.
type beaconKind int

const (
	beaconNone beaconKind = iota
	beaconFree
	beaconIdle
	beaconIdleHot
	beaconUsed
)

func (b beaconKind) String() string {
	switch b {
	case beaconFree:
		return "FREE"
	case beaconIdle:
		return "IDLE"
	case beaconIdleHot:
		return "IDLE_HOT"
	case beaconUsed:
		return "USED"
	default:
		return "-"
	}
}

// Handle is an opaque engine-owned resource. The cache never
// dereferences it; it is only stored, returned, and handed to the
// unlock/close hooks.
type Handle interface{}

// link holds the intrusive doubly-linked list pointers for a slot,
// expressed as indices rather than pointers so no reference outlives
// the global mutex and no slot address is ever taken across an
// operation boundary.
type link struct {
	prev int32
	next int32
}

// Slot is one entry of the fixed-size slot table. All fields except
// the two condition variables are only ever touched while the Cache's
// global mutex is held.
type Slot struct {
	index int32

	name   string
	handle Handle
	status Status

	owner        int64 // goroutine-identifying token; 0 means unowned
	countOpen    int32
	countWaiting int32

	heat       int32
	lastUpdate int64 // unix nanos

	beacon beaconKind
	link   link

	openAttempts *rrd // successful opens per second
	openWaitTime *rrd // microseconds waited per second

	cond     *sync.Cond // regular waiters
	condPrio *sync.Cond // urgent waiters
}

func newSlot(index int32, mu *sync.Mutex) *Slot {
	return &Slot{
		index:        index,
		status:       StatusFree,
		beacon:       beaconFree,
		link:         link{prev: -1, next: -1},
		openAttempts: newRRD(),
		openWaitTime: newRRD(),
		cond:         sync.NewCond(mu),
		condPrio:     sync.NewCond(mu),
	}
}

// reset clears name, handle, owner, count_open, heat and last_update
// for the FREE state. count_waiting is not touched: waiters decrement
// it themselves when they wake.
func (s *Slot) reset() {
	s.name = ""
	s.handle = nil
	s.owner = 0
	s.countOpen = 0
	s.heat = 0
	s.lastUpdate = 0
}

// signal wakes one priority waiter and one regular waiter. Both
// condition variables share the cache's global mutex, so this must be
// called with that mutex held; woken goroutines re-enter the
// state-machine switch in OpenAndLock rather than assuming success.
func (s *Slot) signal() {
	s.condPrio.Signal()
	s.cond.Signal()
}

// String renders a one-line debug summary, grounded in the original's
// sqlx_base_debug: "BASE [idx/name] open=N heat=H STATUS [prev,next]".
func (s *Slot) String() string {
	name := s.name
	if name == "" {
		name = "-"
	}
	return fmtSlot(s.index, name, s.countOpen, s.heat, s.status, s.link)
}

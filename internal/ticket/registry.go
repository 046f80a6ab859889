// Package ticket holds the in-memory ticket state: which user owns which
// thread, and which staff member has claimed which thread.
//
// State is process-lifetime only. A restart forgets every ticket.
package ticket

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrTicketExists is returned when a user already has an open ticket.
	ErrTicketExists = errors.New("user already has an open ticket")
	// ErrThreadInUse is returned when a thread already backs another ticket.
	ErrThreadInUse = errors.New("thread already backs a ticket")
	// ErrNotClaimed is returned when transferring an unclaimed thread.
	ErrNotClaimed = errors.New("ticket not claimed")
)

// State is the lifecycle position of a thread.
type State string

const (
	StateUnclaimed State = "unclaimed"
	StateClaimed   State = "claimed"
	StateClosed    State = "closed"
)

// Ticket is one open conversation between a user and staff.
type Ticket struct {
	UserID   string    `json:"user_id"`
	ThreadID string    `json:"thread_id"`
	OpenedAt time.Time `json:"opened_at"`
}

// Claim records the staff member currently answering a thread.
type Claim struct {
	StaffID   string    `json:"staff_id"`
	StaffName string    `json:"staff_name"`
	RoleLabel string    `json:"role_label"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// Summary is a point-in-time view of the registry.
type Summary struct {
	Open      int `json:"open"`
	Claimed   int `json:"claimed"`
	Unclaimed int `json:"unclaimed"`
}

// Registry owns the ticket and claim indices.
// byUser and byThread are kept as an exact bijection.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[string]Ticket // user id -> ticket
	byThread map[string]string // thread id -> user id
	claims   map[string]Claim  // thread id -> claim

	userLocks keyedMutex
	now       func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[string]Ticket),
		byThread:  make(map[string]string),
		claims:    make(map[string]Claim),
		userLocks: keyedMutex{locks: make(map[string]*refMutex)},
		now:       time.Now,
	}
}

// ThreadFor returns the open thread of a user.
func (r *Registry) ThreadFor(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byUser[userID]
	return t.ThreadID, ok
}

// OwnerOf returns the user owning a thread.
func (r *Registry) OwnerOf(threadID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byThread[threadID]
	return userID, ok
}

// Open records a new ticket for userID backed by threadID.
func (r *Registry) Open(userID, threadID string) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[userID]; ok {
		return Ticket{}, ErrTicketExists
	}
	if _, ok := r.byThread[threadID]; ok {
		return Ticket{}, ErrThreadInUse
	}
	t := Ticket{UserID: userID, ThreadID: threadID, OpenedAt: r.now()}
	r.byUser[userID] = t
	r.byThread[threadID] = userID
	return t, nil
}

// ClaimFor returns the current claim on a thread.
func (r *Registry) ClaimFor(threadID string) (Claim, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[threadID]
	return c, ok
}

// SetClaim overwrites any claim on threadID. The thread does not have to
// back a ticket.
func (r *Registry) SetClaim(threadID string, c Claim) Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ClaimedAt.IsZero() {
		c.ClaimedAt = r.now()
	}
	r.claims[threadID] = c
	return c
}

// Transfer reassigns an already claimed thread.
func (r *Registry) Transfer(threadID string, to Claim) (previous Claim, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, ok := r.claims[threadID]
	if !ok {
		return Claim{}, ErrNotClaimed
	}
	if to.ClaimedAt.IsZero() {
		to.ClaimedAt = r.now()
	}
	r.claims[threadID] = to
	return previous, nil
}

// Close removes the ticket backed by threadID and its claim. It returns the
// owning user, if there was one.
func (r *Registry) Close(threadID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, threadID)
	userID, ok := r.byThread[threadID]
	if !ok {
		return "", false
	}
	delete(r.byThread, threadID)
	delete(r.byUser, userID)
	return userID, true
}

// StateOf reports where a thread is in the ticket lifecycle.
// Threads that back no ticket and carry no claim are reported as closed.
func (r *Registry) StateOf(threadID string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.claims[threadID]; ok {
		return StateClaimed
	}
	if _, ok := r.byThread[threadID]; ok {
		return StateUnclaimed
	}
	return StateClosed
}

// Len returns the number of open tickets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Summary counts open tickets by claim state.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Summary{Open: len(r.byUser)}
	for threadID := range r.byThread {
		if _, ok := r.claims[threadID]; ok {
			s.Claimed++
		}
	}
	s.Unclaimed = s.Open - s.Claimed
	return s
}

// Tickets returns the open tickets, oldest first.
func (r *Registry) Tickets() []Ticket {
	r.mu.RLock()
	out := make([]Ticket, 0, len(r.byUser))
	for _, t := range r.byUser {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// LockUser serialises work for one user. The returned func releases it.
func (r *Registry) LockUser(userID string) func() {
	return r.userLocks.lock(userID)
}

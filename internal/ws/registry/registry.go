package registry

import (
	"sync"
	"time"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
)

const defaultWriteTimeout = 5 * time.Second

// Conn is the slice of a websocket connection the registry needs. It is
// satisfied by *websocket.Conn.
type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type entry struct {
	conn    Conn
	ownerID string
	// serializes writes to one connection; the websocket conn only
	// supports a single concurrent writer
	writeMu sync.Mutex
}

// Registry maps job ids to the single live connection allowed to receive
// push deliveries for that job. All mutable state lives behind the mutex;
// there are no ambient globals.
type Registry struct {
	mu           sync.RWMutex
	connections  map[string]*entry
	writeTimeout time.Duration
	logger       primary.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithWriteTimeout bounds how long a push may spend writing to a connection
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.writeTimeout = d
	}
}

// New creates a new connection registry
func New(logger primary.Logger, options ...Option) *Registry {
	r := &Registry{
		connections:  make(map[string]*entry),
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// Connect registers conn as the authoritative connection for jobID,
// replacing any prior registration. The superseded connection is not
// closed here; it simply stops receiving pushes.
func (r *Registry) Connect(jobID string, conn Conn, ownerID string) {
	r.mu.Lock()
	r.connections[jobID] = &entry{conn: conn, ownerID: ownerID}
	r.mu.Unlock()

	r.logger.Info("Connection registered", "jobId", jobID, "userId", ownerID)
}

// Disconnect removes the registration for jobID if conn still owns it.
// Removing an absent or already-superseded entry is a no-op.
func (r *Registry) Disconnect(jobID string, conn Conn) {
	r.mu.Lock()
	if e, exists := r.connections[jobID]; exists && e.conn == conn {
		delete(r.connections, jobID)
		r.mu.Unlock()
		r.logger.Info("Connection removed", "jobId", jobID)
		return
	}
	r.mu.Unlock()
}

// Push attempts to deliver payload to the live connection for jobID.
// It returns true only when the send completes without error. An absent
// registration or a dead connection yields false; the polling path remains
// the correctness backstop.
func (r *Registry) Push(jobID string, payload interface{}) (delivered bool) {
	// A panicking connection must not take down the webhook path
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Recovered from push panic", "jobId", jobID, "panic", rec)
			delivered = false
		}
	}()

	r.mu.RLock()
	e, exists := r.connections[jobID]
	r.mu.RUnlock()
	if !exists {
		return false
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_ = e.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	if err := e.conn.WriteJSON(payload); err != nil {
		r.logger.Warn("Push delivery failed", "jobId", jobID, "error", err)
		return false
	}

	return true
}

// Registered reports whether a live registration exists for jobID
func (r *Registry) Registered(jobID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.connections[jobID]
	return exists
}

// Owner returns the identity the registration was admitted under
func (r *Registry) Owner(jobID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.connections[jobID]
	if !exists {
		return "", false
	}
	return e.ownerID, true
}

// Len returns the number of live registrations
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}

// CloseAll closes every registered connection, used on shutdown
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for jobID, e := range r.connections {
		if err := e.conn.Close(); err != nil {
			r.logger.Error("Failed to close connection", "jobId", jobID, "error", err)
		}
		delete(r.connections, jobID)
	}
}

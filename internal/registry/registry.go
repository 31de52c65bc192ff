package registry

import (
	"errors"
	"sync"

	"pongarena/server/internal/logging"
)

// ErrFull signals the registry reached its configured connection capacity.
var ErrFull = errors.New("registry: connection capacity reached")

// PresenceStatus mirrors the presence states reported to the social
// collaborators.
type PresenceStatus int

const (
	PresenceOffline PresenceStatus = iota
	PresenceOnline
	PresenceInGame
)

func (s PresenceStatus) String() string {
	switch s {
	case PresenceOnline:
		return "online"
	case PresenceInGame:
		return "in_game"
	default:
		return "offline"
	}
}

// PresenceNotifier receives user presence transitions. The presence service
// itself is an external collaborator; only the notification seam lives here.
type PresenceNotifier interface {
	SetPresence(userID int64, status PresenceStatus)
}

// ConnectedUser binds one live connection to an online user identity. The same
// user id may appear under several connection ids (multi-tab).
type ConnectedUser struct {
	ConnID   string
	UserID   int64
	Username string
	Avatar   string
}

// Registry tracks the live connections of the gateway.
type Registry struct {
	logger   *logging.Logger
	presence PresenceNotifier
	maxConns int

	mu    sync.RWMutex
	conns map[string]*ConnectedUser
}

// Option configures optional registry parameters at construction time.
type Option func(*Registry)

// WithPresence wires the presence notification seam.
func WithPresence(notifier PresenceNotifier) Option {
	return func(r *Registry) {
		r.presence = notifier
	}
}

// WithMaxConnections caps how many live connections the registry accepts.
func WithMaxConnections(max int) Option {
	return func(r *Registry) {
		if max > 0 {
			r.maxConns = max
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		logger: logging.L(),
		conns:  make(map[string]*ConnectedUser),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Add registers a new connection for the user. The first connection of a user
// reports an Online presence transition.
func (r *Registry) Add(connID string, userID int64, username, avatar string) (*ConnectedUser, error) {
	r.mu.Lock()
	if r.maxConns > 0 && len(r.conns) >= r.maxConns {
		r.mu.Unlock()
		return nil, ErrFull
	}
	first := !r.hasUserLocked(userID)
	entry := &ConnectedUser{
		ConnID:   connID,
		UserID:   userID,
		Username: username,
		Avatar:   avatar,
	}
	r.conns[connID] = entry
	user := *entry
	r.mu.Unlock()

	r.logger.Debug("connection registered",
		logging.String("conn_id", connID),
		logging.Int64("user_id", userID),
	)
	if first && r.presence != nil {
		r.presence.SetPresence(userID, PresenceOnline)
	}
	return &user, nil
}

// Remove drops the connection. Closing the user's last connection reports an
// Offline presence transition.
func (r *Registry) Remove(connID string) (*ConnectedUser, bool) {
	r.mu.Lock()
	user, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	delete(r.conns, connID)
	last := !r.hasUserLocked(user.UserID)
	r.mu.Unlock()

	r.logger.Debug("connection removed",
		logging.String("conn_id", connID),
		logging.Int64("user_id", user.UserID),
	)
	if last && r.presence != nil {
		r.presence.SetPresence(user.UserID, PresenceOffline)
	}
	return user, true
}

// Get resolves a connection id to a snapshot of its user entry. A copy is
// returned because UpdateDisplayInfo mutates the live entries under the lock.
func (r *Registry) Get(connID string) (*ConnectedUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	user := *entry
	return &user, true
}

// ConnsOf lists all connection ids currently held by the user.
func (r *Registry) ConnsOf(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for connID, user := range r.conns {
		if user.UserID == userID {
			out = append(out, connID)
		}
	}
	return out
}

// Online reports whether the user holds at least one live connection.
func (r *Registry) Online(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasUserLocked(userID)
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// UpdateDisplayInfo reflects an external profile edit into every live entry of
// the user.
func (r *Registry) UpdateDisplayInfo(userID int64, username, avatar string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.conns {
		if user.UserID == userID {
			user.Username = username
			user.Avatar = avatar
		}
	}
}

// UserInfo resolves a user id to a snapshot of one of its live connection
// entries. Like Get, it copies so concurrent profile edits stay invisible to
// the caller's copy.
func (r *Registry) UserInfo(userID int64) (*ConnectedUser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.conns {
		if entry.UserID == userID {
			user := *entry
			return &user, true
		}
	}
	return nil, false
}

// MarkInGame reports an InGame presence transition for the user.
func (r *Registry) MarkInGame(userID int64) {
	if r.presence != nil {
		r.presence.SetPresence(userID, PresenceInGame)
	}
}

// MarkOnline reports the user back as Online, typically after leaving a game.
// Offline users are left alone.
func (r *Registry) MarkOnline(userID int64) {
	if r.presence == nil || !r.Online(userID) {
		return
	}
	r.presence.SetPresence(userID, PresenceOnline)
}

func (r *Registry) hasUserLocked(userID int64) bool {
	for _, user := range r.conns {
		if user.UserID == userID {
			return true
		}
	}
	return false
}

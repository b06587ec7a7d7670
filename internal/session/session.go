// Package session keeps the current user of each browser session. It is the
// portal's application context: handlers get the user from a Manager, never
// from package state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"appointment-portal/internal/auth"
	"appointment-portal/internal/model"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string     `json:"id"`
	User      model.User `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions. Load returns ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Sweeper is implemented by stores that do not expire entries on their own.
// It returns the ids it removed.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

// UserPurger is implemented by stores that can drop every session of a user.
type UserPurger interface {
	DeleteForUser(ctx context.Context, userID int64) ([]string, error)
}

type Manager struct {
	store  Store
	secret string
	ttl    time.Duration

	mu   sync.Mutex
	subs map[string]map[chan *model.User]struct{}
}

func NewManager(st Store, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store:  st,
		secret: secret,
		ttl:    ttl,
		subs:   make(map[string]map[chan *model.User]struct{}),
	}
}

func (m *Manager) Store() Store { return m.store }

// Start logs u in. When prevToken still names a live session that session is
// taken over, so a second login on the same browser replaces the user in
// place and its subscribers see the new user.
func (m *Manager) Start(ctx context.Context, prevToken string, u model.User) (string, *Session, error) {
	now := time.Now()
	s := &Session{ID: uuid.NewString(), CreatedAt: now}
	if prevToken != "" {
		if prev, err := m.Resolve(ctx, prevToken); err == nil {
			s.ID = prev.ID
		}
	}
	s.User = u
	s.ExpiresAt = now.Add(m.ttl)

	if err := m.store.Save(ctx, s); err != nil {
		return "", nil, err
	}
	tok, err := auth.MakeToken(s.ID, u.ID, u.Role, m.secret, m.ttl)
	if err != nil {
		return "", nil, err
	}
	m.notify(s.ID, &s.User)
	return tok, s, nil
}

// Resolve maps a token to its live session.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	c, err := auth.ParseToken(token, m.secret)
	if err != nil {
		return nil, ErrNotFound
	}
	s, err := m.store.Load(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	if s.Expired(time.Now()) {
		_ = m.store.Delete(ctx, s.ID)
		return nil, ErrNotFound
	}
	return s, nil
}

// End logs the session out. Ending an unknown session is not an error.
func (m *Manager) End(ctx context.Context, token string) error {
	c, err := auth.ParseToken(token, m.secret)
	if err != nil {
		return nil
	}
	if err := m.store.Delete(ctx, c.SessionID); err != nil {
		return err
	}
	m.notify(c.SessionID, nil)
	return nil
}

// Subscribe returns a channel that receives the session's user after every
// login and nil after logout. Only the latest value is kept for slow readers.
func (m *Manager) Subscribe(sid string) (<-chan *model.User, func()) {
	ch := make(chan *model.User, 1)

	m.mu.Lock()
	set, ok := m.subs[sid]
	if !ok {
		set = make(map[chan *model.User]struct{})
		m.subs[sid] = set
	}
	set[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[sid], ch)
			if len(m.subs[sid]) == 0 {
				delete(m.subs, sid)
			}
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (m *Manager) notify(sid string, u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[sid] {
		select {
		case ch <- u:
		default:
			// drop the stale value
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

// Sweep drops expired sessions from stores that need it. Subscribers of a
// swept session see a logout.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	sw, ok := m.store.(Sweeper)
	if !ok {
		return 0, nil
	}
	ids, err := sw.DeleteExpired(ctx, time.Now())
	m.loggedOut(ids)
	return len(ids), err
}

// EndUser logs a user out everywhere the store can find them.
func (m *Manager) EndUser(ctx context.Context, userID int64) (int, error) {
	p, ok := m.store.(UserPurger)
	if !ok {
		return 0, nil
	}
	ids, err := p.DeleteForUser(ctx, userID)
	m.loggedOut(ids)
	return len(ids), err
}

func (m *Manager) loggedOut(ids []string) {
	for _, id := range ids {
		m.notify(id, nil)
	}
}

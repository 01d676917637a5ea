package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

// Kinds
const (
	KindInfo    = "info"
	KindWarning = "warning"
	KindError   = "error"
	KindSuccess = "success"
)

const (
	ProfileReminderTitle   = "Complete your profile"
	profileReminderMessage = "Add your details so teachers and classmates know who you are."
	DefaultProfileLink     = "/profile/edit"
)

var Kinds = []string{KindInfo, KindWarning, KindError, KindSuccess}

type (
	Notification struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Message   string    `json:"message"`
		Kind      string    `json:"type"`
		Read      bool      `json:"read"`
		Link      string    `json:"link,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	NewNotification struct {
		Title   string `json:"title" validate:"required,notblank"`
		Message string `json:"message"`
		Kind    string `json:"type" validate:"omitempty,oneof=info warning error success"`
		Link    string `json:"link"`
	}

	// Snapshot is what subscribers see: items newest first.
	Snapshot struct {
		Items       []Notification `json:"items"`
		UnreadCount int            `json:"unreadCount"`
	}

	Option func(*Store)

	subscriber struct {
		id int
		fn func(Snapshot)
	}

	// Store holds the transient notification list. Safe for concurrent use.
	Store struct {
		now         func() time.Time
		newID       func() string
		logger      core.Logger
		profileLink string

		mu    sync.RWMutex
		items []Notification // newest first

		subMu     sync.Mutex
		subs      []subscriber
		nextSubID int
	}
)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithIDFunc(newID func() string) Option { return func(s *Store) { s.newID = newID } }

func WithLogger(logger core.Logger) Option { return func(s *Store) { s.logger = logger } }

func WithProfileLink(link string) Option {
	return func(s *Store) {
		if link != "" {
			s.profileLink = link
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		newID:       newID,
		profileLink: DefaultProfileLink,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newID returns a UUIDv7, which sorts by creation time.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func isKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (s *Store) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Items:       append([]Notification{}, s.items...),
		UnreadCount: s.unreadCount(),
	}
}

func (s *Store) unreadCount() int {
	var n int
	for _, item := range s.items {
		if !item.Read {
			n++
		}
	}
	return n
}

func (s *Store) publish() {
	snap := s.snapshot()
	s.subMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(snap)
	}
}

// Subscribe calls fn with the current snapshot now and after every change.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	fn(s.snapshot())

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) Snapshot() Snapshot { return s.snapshot() }

// List returns the notifications, newest first.
func (s *Store) List() []Notification { return s.snapshot().Items }

func (s *Store) Get(id string) (Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Notification{}, false
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadCount()
}

// Add stores n as a new unread notification in front of the others.
func (s *Store) Add(n NewNotification) Notification {
	kind := core.CleanString(n.Kind, true /* lower */)
	if !isKind(kind) {
		kind = KindInfo
	}
	item := Notification{
		ID:        s.newID(),
		Title:     n.Title,
		Message:   n.Message,
		Kind:      kind,
		Link:      n.Link,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.items = append([]Notification{item}, s.items...)
	s.mu.Unlock()

	s.publish()
	return item
}

// MarkAsRead does nothing when id is unknown.
func (s *Store) MarkAsRead(id string) {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].Read {
			s.items[i].Read = true
			changed = true
			break
		}
	}
	s.mu.Unlock()

	if changed {
		s.publish()
	}
}

func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.publish()
	}
}

// Remove does nothing when id is unknown.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	removed := false
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.publish()
	}
}

// Clear drops every notification.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	s.publish()
}

// SeedProfileReminder adds the profile reminder unless one is already listed.
func (s *Store) SeedProfileReminder(_ context.Context, usr user.User) {
	s.mu.Lock()
	for _, item := range s.items {
		if item.Title == ProfileReminderTitle {
			s.mu.Unlock()
			return
		}
	}
	item := Notification{
		ID:        s.newID(),
		Title:     ProfileReminderTitle,
		Message:   profileReminderMessage,
		Kind:      KindWarning,
		Link:      s.profileLink,
		CreatedAt: s.now().UTC(),
	}
	s.items = append([]Notification{item}, s.items...)
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("profile reminder added", usr)
	}
	s.publish()
}

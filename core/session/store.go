package session

import (
	"context"
	"encoding/json"
	"net/mail"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

const (
	DefaultStorageKey = "user"

	GoogleUserID          = "google-oauth-placeholder"
	googleUserEmail       = "google.user@gmail.com"
	googleUserDisplayName = "Google User"
	googleUserPhotoURL    = "https://lh3.googleusercontent.com/a/default-user"

	passwordResetTemplate = "password_reset"
)

type (
	Deps struct {
		Registry   user.Registry
		Storage    core.Storage
		Mailer     core.EmailService
		Logger     core.Logger
		Tokens     *user.TokenGenerator // optional; reset emails carry no link without it
		StorageKey string
	}

	// State is what subscribers see. User is nil while Anonymous.
	State struct {
		User          *user.User `json:"user"`
		Authenticated bool       `json:"isAuthenticated"`
		Loading       bool       `json:"loading"`
		Err           string     `json:"error,omitempty"`
	}

	subscriber struct {
		id int
		fn func(State)
	}

	// Store owns the current session. Safe for concurrent use.
	Store struct {
		registry user.Registry
		storage  core.Storage
		mailer   core.EmailService
		logger   core.Logger
		tokens   *user.TokenGenerator
		key      string

		mu       sync.RWMutex
		current  *user.User
		restored bool
		inFlight int
		errMsg   string

		subMu     sync.Mutex
		subs      []subscriber
		nextSubID int
		onAuth    []func(context.Context, user.User)
		onLogout  []func(context.Context)
	}
)

func (s State) IsAuthenticated() bool { return s.User != nil }

func NewStore(deps Deps) *Store {
	key := deps.StorageKey
	if key == "" {
		key = DefaultStorageKey
	}
	return &Store{
		registry: deps.Registry,
		storage:  deps.Storage,
		mailer:   deps.Mailer,
		logger:   deps.Logger,
		tokens:   deps.Tokens,
		key:      key,
	}
}

// public strips what consumers must not see.
func public(u user.User) user.User {
	u = u.Clone()
	u.PasswordHash = nil
	return u
}

func (s *Store) snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Loading: !s.restored || s.inFlight > 0,
		Err:     s.errMsg,
	}
	if s.current != nil {
		usr := public(*s.current)
		st.User = &usr
		st.Authenticated = true
	}
	return st
}

func (s *Store) State() State { return s.snapshot() }

// User returns a copy of the current identity.
func (s *Store) User() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return user.User{}, false
	}
	return public(*s.current), true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

func (s *Store) IsLoading() bool { return s.snapshot().Loading }

func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Subscribe calls fn with the current state now and after every change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
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

// OnAuthenticated registers fn to run each time a new session is established.
func (s *Store) OnAuthenticated(fn func(ctx context.Context, usr user.User)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.onAuth = append(s.onAuth, fn)
}

// OnLogout registers fn to run each time a session ends.
func (s *Store) OnLogout(fn func(ctx context.Context)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

func (s *Store) publish() {
	st := s.snapshot()
	s.subMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(st)
	}
}

func (s *Store) authenticated(ctx context.Context, usr user.User) {
	s.subMu.Lock()
	handlers := make([]func(context.Context, user.User), len(s.onAuth))
	copy(handlers, s.onAuth)
	s.subMu.Unlock()
	for _, fn := range handlers {
		fn(ctx, public(usr))
	}
}

func (s *Store) loggedOut(ctx context.Context) {
	s.subMu.Lock()
	handlers := make([]func(context.Context), len(s.onLogout))
	copy(handlers, s.onLogout)
	s.subMu.Unlock()
	for _, fn := range handlers {
		fn(ctx)
	}
}

func (s *Store) persist(ctx context.Context, usr user.User) error {
	data, err := json.Marshal(usr)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	return errors.Wrap(s.storage.Save(ctx, s.key, data), "persisting session")
}

// Restore rehydrates the session from durable storage. Only the first call does anything.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	usr, err := s.load(ctx)

	s.mu.Lock()
	s.restored = true
	established := usr != nil && s.current == nil
	if established {
		s.current = usr
	}
	s.mu.Unlock()

	s.publish()
	if established {
		s.logger.Debug("session restored", *usr)
		s.authenticated(ctx, *usr)
	}
	return err
}

func (s *Store) load(ctx context.Context) (*user.User, error) {
	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		return nil, errors.Wrap(err, "loading session")
	}
	if data == nil {
		return nil, nil
	}

	var usr user.User
	if err := json.Unmarshal(data, &usr); err != nil || usr.ID == "" {
		if err == nil {
			err = errors.New("record has no id")
		}
		s.logger.Warn("discarding corrupt session record", err)
		if err := s.storage.Delete(ctx, s.key); err != nil {
			s.logger.Error("removing corrupt session record", err)
		}
		return nil, nil
	}
	usr = user.Normalize(usr)
	return &usr, nil
}

// run is one mutator attempt: Err is cleared and Loading raised while fn runs.
// fn receives the current identity (nil while Anonymous) and returns the one to commit.
// The result is persisted before it is published; on failure nothing changes.
func (s *Store) run(ctx context.Context, fn func(current *user.User) (user.User, error)) (user.User, error) {
	s.mu.Lock()
	s.errMsg = ""
	s.inFlight++
	var current *user.User
	if s.current != nil {
		cur := s.current.Clone()
		current = &cur
	}
	s.mu.Unlock()
	s.publish()

	next, err := fn(current)
	if err == nil {
		next = user.Normalize(next)
		err = s.persist(ctx, next)
	}

	s.mu.Lock()
	s.inFlight--
	newSession := false
	if err != nil {
		s.errMsg = err.Error()
	} else {
		newSession = s.current == nil || s.current.ID != next.ID
		s.current = &next
	}
	s.mu.Unlock()
	s.publish()

	if err != nil {
		return user.User{}, err
	}
	if newSession {
		s.authenticated(ctx, next)
	}
	return public(next), nil
}

// Login establishes a session for the registry user matching email and pwd.
func (s *Store) Login(ctx context.Context, email, pwd string) (user.User, error) {
	return s.run(ctx, func(_ *user.User) (user.User, error) {
		email := core.CleanString(email, true /* lower */)
		found, err := s.registry.FindByCredentials(ctx, email, core.CleanString(pwd))
		if err != nil {
			return user.User{}, errors.Wrap(err, "checking credentials")
		}
		if found == nil {
			return user.User{}, ErrInvalidCredentials
		}
		return *found, nil
	})
}

// Register appends a new account to the registry and logs it in.
func (s *Store) Register(ctx context.Context, data user.Patch) (user.User, error) {
	return s.run(ctx, func(_ *user.User) (user.User, error) {
		usr, err := data.Apply(user.User{
			Role:  user.RegisterRole,
			Roles: []string{user.RegisterRole},
		})
		if err != nil {
			return user.User{}, err
		}
		usr, err = s.registry.Append(ctx, user.Normalize(usr))
		if err != nil {
			return user.User{}, &RegistryError{Err: err}
		}
		return usr, nil
	})
}

// LoginWithGoogle establishes the placeholder Google session.
func (s *Store) LoginWithGoogle(ctx context.Context) (user.User, error) {
	return s.run(ctx, func(_ *user.User) (user.User, error) {
		return user.User{
			ID:            GoogleUserID,
			Email:         googleUserEmail,
			DisplayName:   googleUserDisplayName,
			PhotoURL:      googleUserPhotoURL,
			EmailVerified: true,
			Role:          user.RegisterRole,
			Roles:         []string{user.RegisterRole},
		}, nil
	})
}

// ResetPassword emails reset instructions to a registered address.
// It never fails and never touches the session.
func (s *Store) ResetPassword(ctx context.Context, email string) {
	email = core.CleanString(email, true /* lower */)
	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Debug("password reset: invalid address", email)
		return
	}
	usr, err := s.registry.GetByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			s.logger.Error("password reset: looking up user", err)
		}
		return
	}

	data := map[string]interface{}{
		"Name":  usr.DisplayName,
		"Email": usr.Email,
		"UID":   "",
		"Token": "",
	}
	if s.tokens != nil {
		data["UID"] = user.EncodeUID(usr)
		data["Token"] = s.tokens.MakeToken(usr)
	}
	s.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: passwordResetTemplate,
		TemplateData: data,
	})
}

// ConfirmPasswordReset sets a new password for the user a reset email was sent to.
// The session only changes when it belongs to that user.
func (s *Store) ConfirmPasswordReset(ctx context.Context, uid, token, newPwd string) error {
	if s.tokens == nil {
		return ErrInvalidResetLink
	}
	id, err := user.DecodeUID(uid)
	if err != nil {
		return ErrInvalidResetLink
	}
	usr, err := s.registry.GetByID(ctx, id)
	if err != nil {
		if err == user.ErrNotFound {
			return ErrInvalidResetLink
		}
		return errors.Wrap(err, "looking up user")
	}
	if err := s.tokens.VerifyToken(usr, token); err != nil {
		return ErrInvalidResetLink
	}
	if user.PasswordTooSimilar(newPwd, usr.DisplayName, usr.Email) {
		return errPasswordTooSimilar()
	}

	if err := usr.SetPassword(newPwd); err != nil {
		return err
	}
	if _, err := s.registry.Update(ctx, usr); err != nil {
		return errors.Wrap(err, "saving new password")
	}
	s.logger.Info("password reset", usr)

	s.mu.RLock()
	own := s.current != nil && s.current.ID == usr.ID
	s.mu.RUnlock()
	if !own {
		return nil
	}
	_, err = s.run(ctx, func(current *user.User) (user.User, error) {
		if current == nil || current.ID != usr.ID {
			return user.User{}, ErrNotAuthenticated
		}
		next := current.Clone()
		next.PasswordHash = usr.PasswordHash
		return next, nil
	})
	return err
}

// UpdateProfile merges data into the current identity.
// The registry copy is only touched once the session record is saved.
func (s *Store) UpdateProfile(ctx context.Context, data user.Patch) (user.User, error) {
	var next user.User
	res, err := s.run(ctx, func(current *user.User) (user.User, error) {
		if current == nil {
			return user.User{}, ErrNotAuthenticated
		}
		usr, err := data.Apply(*current)
		if err != nil {
			return user.User{}, err
		}
		next = usr
		return usr, nil
	})
	if err != nil {
		return res, err
	}
	s.syncRegistry(ctx, next)
	return res, nil
}

// UpdatePassword replaces the current identity's password after checking the current one.
func (s *Store) UpdatePassword(ctx context.Context, currentPwd, newPwd string) (user.User, error) {
	var next user.User
	res, err := s.run(ctx, func(current *user.User) (user.User, error) {
		if current == nil {
			return user.User{}, ErrNotAuthenticated
		}
		if len(current.PasswordHash) == 0 || current.CheckPassword(currentPwd) != nil {
			return user.User{}, ErrWrongPassword
		}
		if user.PasswordTooSimilar(newPwd, current.DisplayName, current.Email) {
			return user.User{}, errPasswordTooSimilar()
		}
		usr := current.Clone()
		if err := usr.SetPassword(newPwd); err != nil {
			return user.User{}, err
		}
		next = usr
		return usr, nil
	})
	if err != nil {
		return res, err
	}
	s.syncRegistry(ctx, next)
	return res, nil
}

// syncRegistry mirrors session edits into the registry; failures are only logged.
func (s *Store) syncRegistry(ctx context.Context, usr user.User) {
	if _, err := s.registry.Update(ctx, user.Normalize(usr)); err != nil && err != user.ErrNotFound {
		s.logger.Warn("syncing profile to registry", err, usr)
	}
}

// Logout ends the session and removes the persisted record.
func (s *Store) Logout(ctx context.Context) {
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.logger.Error("removing session record", err)
	}

	s.mu.Lock()
	ended := s.current != nil
	s.current = nil
	s.errMsg = ""
	s.mu.Unlock()

	s.publish()
	if ended {
		s.loggedOut(ctx)
	}
}

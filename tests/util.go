package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

func init() {
	user.PasswordCost = bcrypt.MinCost
}

// Config returns the configuration tests build apps with.
func Config() *core.Config {
	return &core.Config{
		AppName:          "Jamii",
		Env:              "TEST",
		Build:            "test",
		Debug:            true,
		TestMode:         true,
		DefaultFromEmail: "noreply@jamii.test",
		FrontendBaseURL:  "http://localhost:3000",
		ProfileEditLink:  "/profile/edit",
		SecretKey:        "test-secret",
		Server:           core.ServerConfig{Addr: ":0", DisableReqLogs: true},
		Storage:          core.StorageConfig{Driver: "memory", Key: "user"},
	}
}

func CreateUser(t *testing.T, reg user.Registry, name, email, pwd, role string) user.User {
	t.Helper()
	usr := user.User{
		Email:         email,
		DisplayName:   name,
		EmailVerified: true,
		Role:          role,
		Roles:         []string{role},
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := reg.Append(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// Entry is one call recorded by Logger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records what it is given.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("fatal", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}

func (l *Logger) Entries(level string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var res []Entry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			res = append(res, e)
		}
	}
	return res
}

// FlakyStorage wraps a core.Storage and fails the operations whose error is set.
type FlakyStorage struct {
	core.Storage

	mu        sync.Mutex
	LoadErr   error
	SaveErr   error
	DeleteErr error
}

func (s *FlakyStorage) Fail(load, save, del error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoadErr, s.SaveErr, s.DeleteErr = load, save, del
}

func (s *FlakyStorage) errs() (load, save, del error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LoadErr, s.SaveErr, s.DeleteErr
}

func (s *FlakyStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if err, _, _ := s.errs(); err != nil {
		return nil, err
	}
	return s.Storage.Load(ctx, key)
}

func (s *FlakyStorage) Save(ctx context.Context, key string, data []byte) error {
	if _, err, _ := s.errs(); err != nil {
		return err
	}
	return s.Storage.Save(ctx, key, data)
}

func (s *FlakyStorage) Delete(ctx context.Context, key string) error {
	if _, _, err := s.errs(); err != nil {
		return err
	}
	return s.Storage.Delete(ctx, key)
}

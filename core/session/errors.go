package session

import (
	"errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrRegistryWrite      = errors.New("could not save the new account")
	ErrInvalidResetLink   = errors.New("the password reset link is invalid or has expired")
)

// RegistryError wraps a failure of the user registry during Register.
// It matches ErrRegistryWrite and the registry's own error.
type RegistryError struct {
	Err error
}

func (err *RegistryError) Error() string {
	return ErrRegistryWrite.Error() + ": " + err.Err.Error()
}

func (err *RegistryError) Unwrap() error { return err.Err }

func (err *RegistryError) Is(target error) bool { return target == ErrRegistryWrite }

// errPasswordTooSimilar reports the rejected password on the newPassword field.
func errPasswordTooSimilar() error {
	return core.NewValidationError(user.ErrPasswordTooSimilar, core.FieldError{
		Field: "newPassword",
		Error: user.ErrPasswordTooSimilar.Error(),
	})
}

package inmemdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/user"
)

// MockPassword is the password of every MockAccounts entry.
const MockPassword = "password123"

// MockAccounts are the demo accounts, one per dashboard.
var MockAccounts = []user.User{
	{Email: "student@jamii.test", DisplayName: "Amani Student", EmailVerified: true, Role: user.RoleStudent, Roles: []string{user.RoleStudent}},
	{Email: "teacher@jamii.test", DisplayName: "Baraka Teacher", EmailVerified: true, Role: user.RoleTeacher, Roles: []string{user.RoleTeacher}},
	{Email: "support@jamii.test", DisplayName: "Chausiku Support", EmailVerified: true, Role: user.RoleSupport, Roles: []string{user.RoleSupport}},
	{Email: "mentor@jamii.test", DisplayName: "Dalila Mentor", EmailVerified: true, Role: user.RoleMentor, Roles: []string{user.RoleMentor, user.RoleTeacher}},
}

// Seed appends MockAccounts to reg, all with MockPassword.
func Seed(ctx context.Context, reg user.Registry) error {
	for _, acct := range MockAccounts {
		usr := acct.Clone()
		if err := usr.SetPassword(MockPassword); err != nil {
			return err
		}
		if _, err := reg.Append(ctx, usr); err != nil {
			return errors.Wrapf(err, "seeding %s", usr.Email)
		}
	}
	return nil
}

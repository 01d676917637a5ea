package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/jamii/core/session"
	"github.com/trezcool/jamii/core/user"
)

// familyMiddleware only lets through sessions whose dashboard is one of families.
func familyMiddleware(store *session.Store, families ...user.RoleFamily) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, ok := store.User()
			if !ok {
				return session.ErrNotAuthenticated
			}
			family := usr.Family()
			for _, f := range families {
				if f == family {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/session"
	"github.com/trezcool/jamii/core/user"
)

type userApi struct {
	registry user.Registry
}

func registerUserAPI(g *echo.Group, registry user.Registry, store *session.Store) {
	api := userApi{registry: registry}

	ug := g.Group("/users", familyMiddleware(store, user.FamilyAdmin))
	ug.GET("", api.query)
	ug.GET("/:id", api.retrieve)
}

func newUserResponse(usr user.User) user.User {
	usr.PasswordHash = nil
	return usr
}

// Handlers

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.registry.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	res := make([]user.User, 0, len(users))
	for _, usr := range users {
		res = append(res, newUserResponse(usr))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.registry.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if err == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "retrieving user")
	}
	return ctx.JSON(http.StatusOK, newUserResponse(usr))
}

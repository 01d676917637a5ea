package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/notification"
)

type notificationApi struct {
	store    *notification.Store
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, store *notification.Store, validate *validator.Validate) {
	api := notificationApi{store: store, validate: validate}

	ng := g.Group("/notifications")
	ng.GET("", api.query)
	ng.POST("", api.create)
	ng.DELETE("", api.clear)
	ng.POST("/read", api.markAllAsRead)

	dg := ng.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/read", api.markAsRead)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.store.Snapshot())
}

func (api *notificationApi) create(ctx echo.Context) error {
	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, api.store.Add(data))
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	n, ok := api.store.Get(ctx.Param("id"))
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markAsRead(ctx echo.Context) error {
	api.store.MarkAsRead(ctx.Param("id"))
	return ctx.JSON(http.StatusOK, api.store.Snapshot())
}

func (api *notificationApi) markAllAsRead(ctx echo.Context) error {
	api.store.MarkAllAsRead()
	return ctx.JSON(http.StatusOK, api.store.Snapshot())
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	api.store.Remove(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) clear(ctx echo.Context) error {
	api.store.Clear()
	return ctx.NoContent(http.StatusNoContent)
}

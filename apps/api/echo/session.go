package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/session"
	"github.com/trezcool/jamii/core/user"
)

const passwordResetSuccess = "If the email address supplied is associated with an account, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type sessionApi struct {
	store    *session.Store
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, store *session.Store, validate *validator.Validate) {
	api := sessionApi{store: store, validate: validate}
	validate.RegisterStructValidation(registerRequestValidation, RegisterRequest{})

	g.GET("/roles", api.queryRoles)

	sg := g.Group("/session")
	sg.GET("", api.retrieve)
	sg.DELETE("", api.logout)
	sg.POST("/login", api.login)
	sg.POST("/register", api.register)
	sg.POST("/google", api.loginWithGoogle)
	sg.POST("/password-reset", api.resetPassword)
	sg.POST("/password-reset/confirm", api.confirmPasswordReset)
	sg.PUT("/profile", api.updateProfile)
	sg.PUT("/password", api.updatePassword)
}

// Handlers

func (api *sessionApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.store.State())
}

func (api *sessionApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.store.Login(ctx.Request().Context(), data.Email, data.Password); err != nil {
		return errors.Wrap(err, "logging in")
	}
	return ctx.JSON(http.StatusOK, api.store.State())
}

func (api *sessionApi) register(ctx echo.Context) error {
	var data RegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if _, err := api.store.Register(ctx.Request().Context(), data.Patch()); err != nil {
		return errors.Wrap(err, "registering")
	}
	return ctx.JSON(http.StatusCreated, api.store.State())
}

func (api *sessionApi) loginWithGoogle(ctx echo.Context) error {
	if _, err := api.store.LoginWithGoogle(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "logging in with google")
	}
	return ctx.JSON(http.StatusOK, api.store.State())
}

func (api *sessionApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	api.store.ResetPassword(ctx.Request().Context(), data.Email)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetSuccess})
}

func (api *sessionApi) confirmPasswordReset(ctx echo.Context) error {
	var data PasswordResetConfirmRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetConfirmRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.store.ConfirmPasswordReset(ctx.Request().Context(), data.UID, data.Token, data.NewPassword); err != nil {
		return errors.Wrap(err, "confirming password reset")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *sessionApi) updateProfile(ctx echo.Context) error {
	var data ProfileRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if _, err := api.store.UpdateProfile(ctx.Request().Context(), data.Patch()); err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, api.store.State())
}

func (api *sessionApi) updatePassword(ctx echo.Context) error {
	var data PasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if _, err := api.store.UpdatePassword(ctx.Request().Context(), data.CurrentPassword, data.NewPassword); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been updated."})
}

func (api *sessionApi) logout(ctx echo.Context) error {
	api.store.Logout(ctx.Request().Context())
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, RolesResponse{Roles: user.Roles, Priority: user.FamilyPriority})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	RegisterRequest struct {
		Email       null.String `json:"email" validate:"required,email"`
		Password    null.String `json:"password" validate:"required,pwdminlen,pwdnospace"`
		DisplayName null.String `json:"displayName" validate:"required,notblank"`
		PhotoURL    null.String `json:"photoURL" validate:"omitempty,url"`
		Role        null.String `json:"role" validate:"omitempty,role,selfrole"`
	}

	ProfileRequest struct {
		Email         null.String `json:"email" validate:"omitempty,email"`
		DisplayName   null.String `json:"displayName" validate:"omitempty,notblank"`
		PhotoURL      null.String `json:"photoURL" validate:"omitempty,url"`
		EmailVerified null.Bool   `json:"emailVerified"`
		Role          null.String `json:"role" validate:"omitempty,role,selfrole"`
	}

	PasswordRequest struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,pwdminlen,pwdnospace"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	PasswordResetConfirmRequest struct {
		UID         string `json:"uid" validate:"required"`
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,pwdminlen,pwdnospace"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	RolesResponse struct {
		Roles    []user.Role       `json:"roles"`
		Priority []user.RoleFamily `json:"priority"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

// registerRequestValidation rejects passwords close to the new account's name or email.
func registerRequestValidation(sl validator.StructLevel) {
	rr := sl.Current().Interface().(RegisterRequest)
	user.ValidatePasswordSimilarity(sl, rr.Password.String, "password", "Password", rr.DisplayName.String, rr.Email.String)
}

func (rr RegisterRequest) Patch() user.Patch {
	return user.Patch{
		Email:       rr.Email,
		DisplayName: rr.DisplayName,
		PhotoURL:    rr.PhotoURL,
		Role:        rr.Role,
		Password:    rr.Password,
	}
}

func (pr ProfileRequest) Patch() user.Patch {
	return user.Patch{
		Email:         pr.Email,
		DisplayName:   pr.DisplayName,
		PhotoURL:      pr.PhotoURL,
		EmailVerified: pr.EmailVerified,
		Role:          pr.Role,
	}
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core/user"
)

type loginForm struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func dashboardPath(role string) (string, bool) {
	switch role {
	case user.RoleAdmin:
		return "/admin/dashboard", true
	case user.RoleStudent:
		return "/student/dashboard", true
	}
	return "", false
}

func (s *Server) home(ctx echo.Context) error {
	view := echo.Map{
		"appName":    s.opts.Conf.AppName,
		"loginUrl":   "/login",
		"setupAdmin": "/setup-admin",
	}
	// already logged in: point to the dashboard
	if cookie, err := ctx.Cookie(s.sessions.cookieName); err == nil {
		if claims, err := s.sessions.parse(cookie.Value); err == nil {
			if path, ok := dashboardPath(claims.Role); ok {
				view["dashboard"] = path
			}
		}
	}
	return ctx.JSON(http.StatusOK, view)
}

func (s *Server) login(ctx echo.Context) error {
	setBack(ctx, "/")

	var form loginForm
	if err := ctx.Bind(&form); err != nil {
		return err
	}
	usr, err := s.opts.UserSvc.Authenticate(ctx.Request().Context(), form.Username, form.Password)
	if err != nil {
		return err
	}

	path, ok := dashboardPath(usr.Role)
	if !ok {
		return errNoDashboard
	}
	token, exp, err := s.sessions.issue(usr)
	if err != nil {
		return errors.Wrap(err, "issuing session")
	}
	s.sessions.setCookie(ctx, token, exp)
	return ctx.Redirect(http.StatusSeeOther, path)
}

func (s *Server) logout(ctx echo.Context) error {
	s.sessions.clearCookie(ctx)
	return ctx.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) setupAdmin(ctx echo.Context) error {
	usr, created, err := s.opts.UserSvc.SetupAdmin(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "setting up admin")
	}
	if !created {
		return ctx.JSON(http.StatusOK, echo.Map{"created": false, "message": "an admin account already exists"})
	}
	s.opts.Logger.Info("bootstrap admin created", usr)
	return ctx.JSON(http.StatusOK, echo.Map{
		"created":  true,
		"message":  "admin account created",
		"username": usr.Username,
	})
}

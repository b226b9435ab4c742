package echoapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/user"
)

const contextBackKey = "back"

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errNoDashboard    = echo.NewHTTPError(http.StatusForbidden, "no dashboard for this role")
	errValidationText = "invalid data"
)

// setBack records the form a failed POST should send the user back to.
func setBack(ctx echo.Context, path string) {
	ctx.Set(contextBackKey, path)
}

func getBack(ctx echo.Context) string {
	if back, ok := ctx.Get(contextBackKey).(string); ok {
		return back
	}
	if back, ok := localReferer(ctx.Request()); ok {
		return back
	}
	return "/"
}

// localReferer returns the path of the Referer when it points back to this host.
func localReferer(req *http.Request) (string, bool) {
	ref, err := url.Parse(req.Referer())
	if err != nil || req.Referer() == "" {
		return "", false
	}
	if ref.Scheme != "" && ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	if ref.Host != "" && ref.Host != req.Host {
		return "", false
	}
	if !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") || strings.Contains(ref.Path, `\`) {
		return "", false
	}
	return ref.RequestURI(), true
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func (s *Server) newAppHTTPErrorHandler(signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message echo.Map

			httpErr *echo.HTTPError
			vErrs   validator.ValidationErrors
			appVErr *core.ValidationError
		)

		switch {
		case errors.As(err, &httpErr):
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			message = echo.Map{"error": httpErr.Message}
		case errors.As(err, &vErrs):
			fldErrs := make(map[string]string, len(vErrs))
			for _, vErr := range vErrs {
				fldErrs[vErr.Field()] = vErr.Translate(s.opts.Translator)
			}
			code = http.StatusBadRequest
			message = echo.Map{"error": errValidationText, "fields": fldErrs, "back": getBack(ctx)}
		case errors.As(err, &appVErr):
			fldErrs := make(map[string]string, len(appVErr.Fields))
			for _, fErr := range appVErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			code = http.StatusBadRequest
			message = echo.Map{"error": appVErr.Error(), "fields": fldErrs, "back": getBack(ctx)}
		case errors.Is(err, user.ErrAuthFailure):
			code = http.StatusBadRequest
			message = echo.Map{"error": user.ErrAuthFailure.Error(), "back": getBack(ctx)}
		case errors.Is(err, user.ErrAccountDeactivated):
			code = http.StatusForbidden
			message = echo.Map{"error": user.ErrAccountDeactivated.Error(), "back": getBack(ctx)}
		case errors.Is(err, user.ErrNotFound):
			code = http.StatusNotFound
			message = echo.Map{"error": user.ErrNotFound.Error()}
		case errors.Is(err, fee.ErrStructureNotFound):
			code = http.StatusNotFound
			message = echo.Map{"error": fee.ErrStructureNotFound.Error()}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = echo.Map{"error": msg}

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
			}
			s.opts.Logger.Error(msg, errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

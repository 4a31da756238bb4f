package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/access"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/user"
)

// principalMiddleware loads the user named by the JWT and attaches its access.Principal to the request.
// Mutations made while handling the request are attributed to that user in the audit log.
func principalMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == core.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}

			ctx.Set(contextUserKey, usr)
			ctx.Set(contextPrincipalKey, access.FromUser(usr))
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(audit.WithActor(req.Context(), usr.ID)))
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if getContextPrincipal(ctx).IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

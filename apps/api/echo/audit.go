package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/audit"
)

func registerAuditAPI(g *echo.Group, repo audit.Repository) {
	g.GET("/audit-logs", func(ctx echo.Context) error {
		filter := audit.QueryFilter{
			ModelName: core.CleanString(ctx.QueryParam("model_name"), true /* lower */),
			Action:    core.CleanString(ctx.QueryParam("action"), true /* lower */),
			ObjectID:  core.CleanString(ctx.QueryParam("object_id")),
		}
		logs, err := repo.QueryAuditLogs(ctx.Request().Context(), filter)
		if err != nil {
			return errors.Wrap(err, "querying audit logs")
		}
		if logs == nil {
			logs = []audit.Log{}
		}
		return ctx.JSON(http.StatusOK, logs)
	}, adminMiddleware())
}

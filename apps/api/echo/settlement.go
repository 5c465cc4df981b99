package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/settlement"
)

type settlementApi struct {
	svc      *settlement.Service
	validate *validator.Validate
}

func registerSettlementAPI(g *echo.Group, svc *settlement.Service, validate *validator.Validate) {
	api := settlementApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/settlement")

	sg.POST("/runs/preview", api.preview)
	sg.POST("/runs", api.execute)
	sg.POST("/sync", api.sync)
	sg.GET("/runs", api.queryRuns)
	sg.GET("/items/:id/audit", api.auditTrail)
}

// Handlers

func (api *settlementApi) preview(ctx echo.Context) error {
	period, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}

	plan, err := api.svc.PreviewRun(ctx.Request().Context(), period)
	if err != nil {
		return errors.Wrap(err, "previewing run")
	}
	if plan.Items == nil {
		plan.Items = []settlement.PlanItem{}
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *settlementApi) execute(ctx echo.Context) error {
	period, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}

	summary, err := api.svc.ExecuteRun(ctx.Request().Context(), period)
	if err != nil {
		return errors.Wrap(err, "executing run")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *settlementApi) sync(ctx echo.Context) error {
	summary, err := api.svc.SyncPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "syncing pending payouts")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *settlementApi) queryRuns(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	runs, err := api.svc.QueryRuns(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying runs")
	}
	if runs == nil {
		runs = []settlement.Run{}
	}
	return ctx.JSON(http.StatusOK, runs)
}

func (api *settlementApi) auditTrail(ctx echo.Context) error {
	trail, err := api.svc.AuditTrail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying audit trail")
	}
	if trail == nil {
		trail = []settlement.AuditEntry{}
	}
	return ctx.JSON(http.StatusOK, trail)
}

func (api *settlementApi) bindPeriod(ctx echo.Context) (settlement.Period, error) {
	var data settlement.RunRequest
	if err := ctx.Bind(&data); err != nil {
		return "", errors.Wrap(err, "binding to RunRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return "", err
	}

	period, err := settlement.ParsePeriod(data.Period)
	if err != nil {
		return "", core.NewValidationError(err, core.FieldError{Field: "period", Error: err.Error()})
	}
	return period, nil
}

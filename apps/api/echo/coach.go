package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
)

type coachApi struct {
	svc      *coach.Service
	validate *validator.Validate
	conf     *core.Config
}

func registerCoachAPI(g *echo.Group, svc *coach.Service, validate *validator.Validate, conf *core.Config) {
	api := coachApi{
		svc:      svc,
		validate: validate,
		conf:     conf,
	}

	cg := g.Group("/coaches")

	cg.POST("", api.create)
	cg.GET("", api.query)

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.GET("/chain", api.sponsorChain)
}

// Handlers

func (api *coachApi) create(ctx echo.Context) error {
	var data coach.NewCoach
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCoach")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating coach")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *coachApi) query(ctx echo.Context) error {
	coaches, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying coaches")
	}
	if coaches == nil {
		coaches = []coach.Coach{}
	}
	return ctx.JSON(http.StatusOK, coaches)
}

func (api *coachApi) retrieve(ctx echo.Context) error {
	c, err := api.contextCoach(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *coachApi) update(ctx echo.Context) error {
	c, err := api.contextCoach(ctx)
	if err != nil {
		return err
	}

	var data coach.UpdateCoach
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCoach")
	}
	if err := data.Validate(api.validate, c); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating coach")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *coachApi) sponsorChain(ctx echo.Context) error {
	c, err := api.contextCoach(ctx)
	if err != nil {
		return err
	}

	chain, err := api.svc.SponsorChain(ctx.Request().Context(), c.ID, api.conf.Settlement.MaxCommissionLevels)
	switch errors.Cause(err) {
	case nil:
	case coach.ErrChainCycle:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return errors.Wrap(err, "reading sponsor chain")
	}

	if chain == nil {
		chain = []coach.ChainMember{}
	}
	return ctx.JSON(http.StatusOK, chain)
}

func (api *coachApi) contextCoach(ctx echo.Context) (coach.Coach, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return coach.Coach{}, errHttpNotFound
	}

	c, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == coach.ErrNotFound {
			return coach.Coach{}, errHttpNotFound
		}
		return coach.Coach{}, errors.Wrap(err, "getting coach")
	}
	return c, nil
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/school"
)

type assignmentApi struct {
	svc assignment.Service
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assignment.Service) {
	api := assignmentApi{svc: svc}

	ag := g.Group("/assignments", jwt)

	// teacher endpoints
	tg := ag.Group("", teacherMiddleware())
	tg.POST("", api.create)
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.POST("/:id/distribute", api.distribute)
	tg.GET("/classes/:classID", api.queryForClass)

	// student endpoints
	ag.GET("/mine", api.queryMine, studentMiddleware())
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	a, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	assignments, err := api.svc.QueryByTeacher(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	a, err := api.svc.GetOwned(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

// distribute fans an assignment out to the rosters of the requested classes.
// Per-class problems come back as diagnostics in the result body, not as HTTP
// errors; only a bad request or an unknown assignment fail the call.
func (api *assignmentApi) distribute(ctx echo.Context) error {
	var data assignment.DistributionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DistributionRequest")
	}
	data.AssignmentID = ctx.Param("id")

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res, err := api.svc.Distribute(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *assignmentApi) queryForClass(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	instances, err := api.svc.QueryForClass(ctx.Request().Context(), ctx.Param("classID"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying class assignments")
	}
	if instances == nil {
		instances = []assignment.StudentAssignment{}
	}
	return ctx.JSON(http.StatusOK, instances)
}

func (api *assignmentApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	instances, err := api.svc.QueryForStudent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying student assignments")
	}
	if instances == nil {
		instances = []assignment.StudentAssignment{}
	}
	return ctx.JSON(http.StatusOK, instances)
}

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"agenda-api/agenda"
	"agenda-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, planners Planners, auth Authenticator, logger *log.Logger) {
	e.GET("/api/agenda", getAgenda(planners, auth, logger))
	e.GET("/api/list", getCategoryList(planners, auth))
	e.POST("/api/tasks", postTask(planners, auth))
	e.POST("/api/tasks/:id/toggle", postToggleTask(planners, auth))
	e.POST("/api/tasks/:id/reorder", postReorderTask(planners, auth))
	e.POST("/api/tasks/:id/reschedule", postRescheduleTask(planners, auth))
	e.DELETE("/api/tasks/:id", deleteTask(planners, auth))
	e.GET("/api/settings", getSettings(planners, auth))
	e.PUT("/api/settings", putSettings(planners, auth))
	e.POST("/api/today", postToday(planners, auth))
	e.GET("/api/categories", getCategories(planners, auth))
	e.POST("/api/categories", postCategory(planners, auth))
	e.DELETE("/api/categories/:id", deleteCategory(planners, auth))
	e.GET("/healthz", healthz())
}

type agendaResponse struct {
	Mode     string              `json:"mode"`
	Sections []agenda.DaySection `json:"sections"`
}

type listResponse struct {
	Mode  string        `json:"mode"`
	Tasks []domain.Task `json:"tasks"`
}

type rescheduleResponse struct {
	Moved bool `json:"moved"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getAgenda(planners Planners, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newAgendaRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		p := planners.Planner(ctx, userID)

		anchor := domain.Midnight(time.Now())
		if raw := c.QueryParam("anchor"); raw != "" {
			parsed, parseErr := domain.ParseDateKey(raw)
			if parseErr != nil {
				metrics.SetErrorStage("invalid_anchor")
				err = c.String(http.StatusBadRequest, "invalid anchor date")
				return err
			}
			anchor = parsed
		}
		if q, provided := searchParam(c); provided {
			metrics.SetSearchProvided(true)
			p.SetSearch(q)
		}

		buildStart := time.Now()
		sections := p.Agenda(anchor)
		metrics.ObserveBuild(time.Since(buildStart))
		metrics.SetSectionsReturned(len(sections))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, agendaResponse{Mode: p.Mode().String(), Sections: sections})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getCategoryList(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		p := planners.Planner(c.Request().Context(), userID)
		if q, provided := searchParam(c); provided {
			p.SetSearch(q)
		}
		tasks, ok := p.CategoryList()
		if !ok {
			return c.String(http.StatusConflict, "no single category filter active")
		}
		return c.JSON(http.StatusOK, listResponse{Mode: p.Mode().String(), Tasks: tasks})
	}
}

type postTaskRequest struct {
	Title      string `json:"title"`
	DateKey    string `json:"dateKey"`
	CategoryID string `json:"categoryId"`
}

func postTask(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req postTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		p := planners.Planner(c.Request().Context(), userID)
		task, ok := p.InlineAdd(c.Request().Context(), req.Title, req.DateKey, req.CategoryID)
		if !ok {
			return c.String(http.StatusBadRequest, "empty title")
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func postToggleTask(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		p := planners.Planner(c.Request().Context(), userID)
		if !p.ToggleDone(c.Request().Context(), c.Param("id")) {
			return c.NoContent(http.StatusNotFound)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type reorderRequest struct {
	VisibleIDs []string `json:"visibleIds"`
	ToIndex    int      `json:"toIndex"`
}

func postReorderTask(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req reorderRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		p := planners.Planner(c.Request().Context(), userID)
		p.Reorder(c.Request().Context(), req.VisibleIDs, c.Param("id"), req.ToIndex)
		return c.NoContent(http.StatusNoContent)
	}
}

type rescheduleRequest struct {
	TargetDate string `json:"targetDate"`
}

func postRescheduleTask(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req rescheduleRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		p := planners.Planner(c.Request().Context(), userID)
		// An unresolvable id or target is a silent no-op, not an error.
		moved := p.Reschedule(c.Request().Context(), c.Param("id"), req.TargetDate)
		return c.JSON(http.StatusOK, rescheduleResponse{Moved: moved})
	}
}

func deleteTask(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		p := planners.Planner(c.Request().Context(), userID)
		if !p.Remove(c.Request().Context(), c.Param("id")) {
			return c.NoContent(http.StatusNotFound)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getSettings(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		p := planners.Planner(c.Request().Context(), userID)
		return c.JSON(http.StatusOK, p.Settings())
	}
}

type putSettingsRequest struct {
	AgendaDays       *int    `json:"agendaDays"`
	ActiveCategoryID *string `json:"activeCategoryId"`
}

func putSettings(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req putSettingsRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		p := planners.Planner(ctx, userID)
		if req.AgendaDays != nil {
			if err := p.SetAgendaDays(ctx, *req.AgendaDays); err != nil {
				return c.String(http.StatusBadRequest, err.Error())
			}
		}
		if req.ActiveCategoryID != nil {
			p.SetActiveCategory(ctx, *req.ActiveCategoryID)
		}
		return c.JSON(http.StatusOK, p.Settings())
	}
}

// postToday is the "today" action: it clears the category filter, dropping
// the view back to the all-categories agenda.
func postToday(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		p := planners.Planner(c.Request().Context(), userID)
		p.SetActiveCategory(c.Request().Context(), "")
		return c.JSON(http.StatusOK, p.Settings())
	}
}

func getCategories(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		p := planners.Planner(c.Request().Context(), userID)
		return c.JSON(http.StatusOK, p.Categories())
	}
}

type postCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func postCategory(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req postCategoryRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Name == "" {
			return c.String(http.StatusBadRequest, "category name required")
		}
		p := planners.Planner(c.Request().Context(), userID)
		return c.JSON(http.StatusCreated, p.AddCategory(c.Request().Context(), req.Name, req.Color))
	}
}

func deleteCategory(planners Planners, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		p := planners.Planner(c.Request().Context(), userID)
		if !p.RemoveCategory(c.Request().Context(), c.Param("id")) {
			return c.NoContent(http.StatusNotFound)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// searchParam reports the q query parameter and whether it was present at
// all, so an omitted parameter leaves the stored search term alone.
func searchParam(c echo.Context) (string, bool) {
	params := c.QueryParams()
	if _, ok := params["q"]; !ok {
		return "", false
	}
	return params.Get("q"), true
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/yorozutantei/yorozu-scheduler/board"
	"github.com/yorozutantei/yorozu-scheduler/domain"
)

const maxBodySize = 64 << 10

// Register wires the widget callbacks on the provided Echo instance.
func Register(e *echo.Echo, b Board, auth Authenticator, logger *log.Logger) {
	e.GET("/healthz", healthz())

	g := e.Group("/api", RequestMetrics(logger), SessionGate(auth))
	g.GET("/calendar", getCalendar(b))
	g.GET("/sidebar", getSidebar(b))
	g.POST("/navigate", postNavigate(b))
	g.GET("/members", getMembers(b))

	g.POST("/schedules", postSchedule(b))
	g.PUT("/schedules/:id", putSchedule(b))
	g.POST("/schedules/:id/move", postScheduleRange(b.MoveSchedule))
	g.POST("/schedules/:id/resize", postScheduleRange(b.ResizeSchedule))
	g.DELETE("/schedules/:id", deleteEntry(b.DeleteSchedule))

	g.POST("/todos", postTodo(b))
	g.PUT("/todos/:id", putTodo(b))
	g.POST("/todos/:id/toggle", postTodoAction(b.ToggleTodo))
	g.POST("/todos/:id/cycle", postTodoAction(b.CycleTodoStatus))
	g.POST("/todos/:id/move", postMoveTodo(b))
	g.DELETE("/todos/:id", deleteEntry(b.DeleteTodo))

	g.GET("/undo", getUndo(b))
	g.POST("/undo", postUndo(b))

	g.GET("/monthly", getMonthly(b))
	g.PUT("/monthly/goal", putGoal(b))
	g.POST("/monthly/checklist", postChecklistItem(b))
	g.POST("/monthly/checklist/:id/toggle", postToggleChecklistItem(b))
	g.DELETE("/monthly/checklist/:id", deleteChecklistItem(b))

	g.GET("/notes", getNotes(b))
	g.POST("/notes", postNote(b))
	g.PUT("/notes/:id", putNote(b))
	g.DELETE("/notes/:id", deleteNote(b))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getCalendar(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := parseFilter(c)
		if err != nil {
			metricsFrom(c).SetErrorStage("invalid_filter")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, b.Calendar(f))
	}
}

// parseFilter reads type, hideDone and the repeated hide=<member> params.
func parseFilter(c echo.Context) (domain.Filter, error) {
	f := domain.Filter{Type: domain.ShowAll}
	switch t := domain.TypeFilter(strings.TrimSpace(c.QueryParam("type"))); t {
	case "":
	case domain.ShowAll, domain.ShowSchedules, domain.ShowTodos:
		f.Type = t
	default:
		return f, errors.New("invalid type filter")
	}
	if raw := c.QueryParam("hideDone"); raw != "" {
		hide, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.New("invalid hideDone")
		}
		f.HideDone = hide
	}
	if hidden := c.QueryParams()["hide"]; len(hidden) > 0 {
		f.MemberVisible = make(map[string]bool, len(hidden))
		for _, name := range hidden {
			f.MemberVisible[name] = false
		}
	}
	return f, nil
}

func getSidebar(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, sidebarResponse{Sidebar: b.Sidebar(), Notices: b.TakeNotices()})
	}
}

func postNavigate(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req navigateRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		d, err := civil.ParseDate(strings.TrimSpace(req.Date))
		if err != nil {
			metricsFrom(c).SetErrorStage("validation")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
		}
		if err := b.Navigate(c.Request().Context(), d); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, b.Sidebar())
	}
}

func getMembers(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, b.Members())
	}
}

func postSchedule(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req scheduleRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		ev, err := b.CreateSchedule(c.Request().Context(), req.event())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, ev)
	}
}

func putSchedule(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req scheduleRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		ev, err := b.UpdateSchedule(c.Request().Context(), c.Param("id"), domain.FullSchedulePatch(req.event()))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, ev)
	}
}

type rangeFunc func(ctx context.Context, id string, start, end time.Time) (domain.ScheduleEvent, error)

func postScheduleRange(fn rangeFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req rangeRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		if req.Start.IsZero() || req.End.IsZero() {
			metricsFrom(c).SetErrorStage("validation")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "start and end are required"})
		}
		ev, err := fn(c.Request().Context(), c.Param("id"), req.Start, req.End)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, ev)
	}
}

func deleteEntry(fn func(ctx context.Context, id string) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := fn(c.Request().Context(), c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postTodo(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req todoRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		t, err := req.todo()
		if err != nil {
			return writeError(c, err)
		}
		saved, err := b.CreateTodo(c.Request().Context(), t)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, saved)
	}
}

func putTodo(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req todoRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		p, err := req.patch()
		if err != nil {
			return writeError(c, err)
		}
		saved, err := b.UpdateTodo(c.Request().Context(), c.Param("id"), p)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, saved)
	}
}

func postTodoAction(fn func(ctx context.Context, id string) (domain.Todo, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		saved, err := fn(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, saved)
	}
}

func postMoveTodo(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req moveTodoRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		if req.Start.IsZero() {
			metricsFrom(c).SetErrorStage("validation")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "start is required"})
		}
		saved, err := b.MoveTodo(c.Request().Context(), c.Param("id"), req.Start)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, saved)
	}
}

func getUndo(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, b.UndoStatus())
	}
}

func postUndo(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		restored := b.Undo()
		return c.JSON(http.StatusOK, undoResponse{Restored: restored, Undo: b.UndoStatus()})
	}
}

func getMonthly(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, b.Monthly())
	}
}

func putGoal(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req goalRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		if err := b.SetGoal(c.Request().Context(), req.Goal); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, b.Monthly())
	}
}

func postChecklistItem(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req checklistRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		if _, err := b.AddChecklistItem(c.Request().Context(), req.Text); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, b.Monthly())
	}
}

func postToggleChecklistItem(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := b.ToggleChecklistItem(c.Request().Context(), c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, b.Monthly())
	}
}

func deleteChecklistItem(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := b.DeleteChecklistItem(c.Request().Context(), c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, b.Monthly())
	}
}

func getNotes(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, b.Notes())
	}
}

func postNote(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req noteRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		n := domain.SharedNote{}
		if req.Title != nil {
			n.Title = *req.Title
		}
		if req.Content != nil {
			n.Content = *req.Content
		}
		saved, err := b.CreateNote(c.Request().Context(), n)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, saved)
	}
}

func putNote(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req noteRequest
		if err := decodeBody(c, &req); err != nil {
			return badBody(c)
		}
		saved, err := b.UpdateNote(c.Request().Context(), c.Param("id"), domain.NotePatch{Title: req.Title, Content: req.Content})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, saved)
	}
}

func deleteNote(b Board) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := b.DeleteNote(c.Request().Context(), c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badBody(c echo.Context) error {
	metricsFrom(c).SetErrorStage("decode")
	return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
}

// writeError maps board errors to responses: rejected input is 400, an
// unknown id is 404 and a failed remote call is 502.
func writeError(c echo.Context, err error) error {
	m := metricsFrom(c)
	var verr *domain.ValidationError
	var rerr *board.RemoteError
	switch {
	case errors.As(err, &verr):
		m.SetErrorStage("validation")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Error()})
	case errors.As(err, &rerr):
		m.SetErrorStage("remote")
		m.SetReloaded(rerr.Reloaded)
		reloaded := rerr.Reloaded
		return c.JSON(http.StatusBadGateway, errorResponse{Error: rerr.Error(), Reloaded: &reloaded})
	case errors.Is(err, domain.ErrNotFound):
		m.SetErrorStage("not_found")
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		m.SetErrorStage("board")
		c.Logger().Error(err)
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
}

// Package admin exposes lifecycle operations over HTTP.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/modhost/lifecycle"
	"github.com/skekre98/modhost/module"
	"github.com/skekre98/modhost/web"
)

// Executor is the part of lifecycle.Orchestrator the handlers use.
type Executor interface {
	Execute(ctx context.Context, op lifecycle.Operation) *lifecycle.Result
	Modules() []lifecycle.ModuleStatus
}

// Handler serves the module administration API.
type Handler struct {
	exec     Executor
	token    string
	maxBytes int64
	logger   *slog.Logger
}

// NewHandler returns a Handler. Requests presenting token as a bearer
// credential act with the manage-modules capability; an empty token
// authorizes nobody.
func NewHandler(exec Executor, token string, maxArchiveBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		exec:     exec,
		token:    token,
		maxBytes: maxArchiveBytes,
		logger:   logger.With(slog.String("component", "admin")),
	}
}

type lifecycleQuery struct {
	Cascade bool `form:"cascade"`
	Force   bool `form:"force"`
}

type uploadQuery struct {
	Update bool `form:"update"`
}

// Mount registers the API under basePath.
func (h *Handler) Mount(basePath string) func(web.Router) {
	return func(r web.Router) {
		g := r.Group(basePath, h.authenticate)
		g.GET("", h.list)
		g.GET("/:id", h.get)
		g.POST("", h.upload)
		g.POST("/start-all", h.startAll)
		g.POST("/:id/start", h.start)
		g.POST("/:id/stop", h.stop)
		g.POST("/:id/unload", h.unload)
	}
}

// authenticate attaches a principal when the bearer token matches. Without
// one the orchestrator rejects mutating operations.
func (h *Handler) authenticate(c *gin.Context) {
	bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if ok && h.token != "" && subtle.ConstantTimeCompare([]byte(bearer), []byte(h.token)) == 1 {
		p := lifecycle.Principal{Name: "admin-api", Capabilities: []string{lifecycle.CapabilityManageModules}}
		c.Request = c.Request.WithContext(lifecycle.WithPrincipal(c.Request.Context(), p))
	}
	c.Next()
}

func (h *Handler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modules": h.exec.Modules()})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	for _, m := range h.exec.Modules() {
		if m.ID == id {
			c.JSON(http.StatusOK, m)
			return
		}
	}
	web.Problem(c, http.StatusNotFound, "module "+id+" is not loaded")
}

func (h *Handler) upload(c *gin.Context) {
	var q uploadQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.Problem(c, http.StatusBadRequest, err.Error())
		return
	}
	archive, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			web.Problem(c, http.StatusRequestEntityTooLarge, "module archive exceeds the upload limit")
			return
		}
		web.Problem(c, http.StatusBadRequest, "reading module archive: "+err.Error())
		return
	}

	var op lifecycle.Operation = lifecycle.Install{Archive: archive}
	if q.Update {
		op = lifecycle.Update{Archive: archive}
	}
	h.respond(c, op)
}

func (h *Handler) startAll(c *gin.Context) {
	h.respond(c, lifecycle.StartAll{})
}

func (h *Handler) start(c *gin.Context) {
	h.respond(c, lifecycle.Start{ID: c.Param("id")})
}

func (h *Handler) stop(c *gin.Context) {
	var q lifecycleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.Problem(c, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(c, lifecycle.Stop{ID: c.Param("id"), Cascade: q.Cascade, Force: q.Force})
}

func (h *Handler) unload(c *gin.Context) {
	var q lifecycleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.Problem(c, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(c, lifecycle.Unload{ID: c.Param("id"), Cascade: q.Cascade, Force: q.Force})
}

func (h *Handler) respond(c *gin.Context, op lifecycle.Operation) {
	res := h.exec.Execute(c.Request.Context(), op)
	if res.Status != lifecycle.StatusSucceeded {
		h.logger.Warn("admin operation not successful",
			"operation", op.Kind(),
			"status", res.Status,
			"kind", res.ErrorKind(),
			"req_id", c.GetString("request_id"),
		)
	}
	c.JSON(StatusCode(res), res)
}

// StatusCode maps a lifecycle result to an HTTP status.
func StatusCode(res *lifecycle.Result) int {
	switch res.Status {
	case lifecycle.StatusSucceeded:
		return http.StatusOK
	case lifecycle.StatusPartial:
		return http.StatusMultiStatus
	}
	switch res.ErrorKind() {
	case module.KindLoadFailed:
		return http.StatusBadRequest
	case module.KindPrivilegeDenied:
		return http.StatusForbidden
	case module.KindNotFound:
		return http.StatusNotFound
	case module.KindPrecondition:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

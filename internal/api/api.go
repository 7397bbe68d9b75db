// Package api serves the tracker over HTTP for UI and API callers.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-bugs/pkg/schema"
	"github.com/celerix-dev/celerix-bugs/pkg/sdk"
)

// ActorHeader carries the already-authenticated actor email.
const ActorHeader = "X-Actor-Email"

const actorKey = "actor"

type Handler struct {
	Tracker sdk.Tracker
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/summary", h.Summary)
	r.GET("/bugs", h.ListBugs)
	r.GET("/bugs/:id", h.GetBug)
	r.GET("/bugs/:id/audit", h.AuditTrail)

	authed := r.Group("", h.RequireActor)
	authed.GET("/me", h.WhoAmI)
	authed.GET("/analytics", h.Analytics)
	authed.POST("/bugs", h.CreateBug)
	authed.POST("/bugs/:id/status", h.ChangeStatus)
	authed.POST("/bugs/:id/assign", h.AssignSelf)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, schema.ErrAlreadyAssigned):
		return http.StatusConflict
	case errors.Is(err, schema.ErrUnknownActor):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{
		"error": err.Error(),
		"code":  schema.ErrorCode(err),
	})
}

// RequireActor resolves the actor header and stores the session on the
// context. Unknown or missing actors are rejected with 401.
func (h *Handler) RequireActor(c *gin.Context) {
	email := c.GetHeader(ActorHeader)
	if email == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing " + ActorHeader + " header",
			"code":  schema.CodeUnknownActor,
		})
		return
	}
	session, err := h.Tracker.WhoAmI(c.Request.Context(), email)
	if err != nil {
		fail(c, err)
		return
	}
	c.Set(actorKey, session)
	c.Next()
}

func actor(c *gin.Context) string {
	return c.MustGet(actorKey).(schema.Session).Identity.Email
}

func (h *Handler) WhoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, c.MustGet(actorKey))
}

func (h *Handler) ListBugs(c *gin.Context) {
	var filter schema.BugFilter
	if s := c.Query("status"); s != "" {
		st, err := schema.ParseStatus(s)
		if err != nil {
			fail(c, &schema.ValidationError{Field: "status", Reason: err.Error()})
			return
		}
		filter.Status = st
	}
	if s := c.Query("severity"); s != "" {
		sev, err := schema.ParseSeverity(s)
		if err != nil {
			fail(c, &schema.ValidationError{Field: "severity", Reason: err.Error()})
			return
		}
		filter.Severity = sev
	}
	filter.Project = c.Query("project")
	filter.AssignedTo = c.Query("assigned_to")
	filter.Query = c.Query("q")

	bugs, err := h.Tracker.ListBugs(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	if bugs == nil {
		bugs = []schema.BugReport{}
	}
	c.JSON(http.StatusOK, bugs)
}

func (h *Handler) GetBug(c *gin.Context) {
	bug, err := h.Tracker.GetBug(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bug)
}

func (h *Handler) AuditTrail(c *gin.Context) {
	entries, err := h.Tracker.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) CreateBug(c *gin.Context) {
	var in schema.NewBugReport
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, &schema.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	bug, err := h.Tracker.CreateBug(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, bug)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, &schema.ValidationError{Field: "status", Reason: err.Error()})
		return
	}
	status, err := schema.ParseStatus(input.Status)
	if err != nil {
		fail(c, &schema.ValidationError{Field: "status", Reason: err.Error()})
		return
	}

	bug, err := h.Tracker.ChangeStatus(c.Request.Context(), actor(c), c.Param("id"), status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bug)
}

func (h *Handler) AssignSelf(c *gin.Context) {
	bug, err := h.Tracker.AssignSelf(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bug)
}

func (h *Handler) Analytics(c *gin.Context) {
	report, err := h.Tracker.Analytics(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.Tracker.Summary(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"appointment-portal/internal/portal"
)

func (h *Handler) instructors(c *gin.Context) {
	list, err := h.svc.Instructors(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// professors takes the ids to leave out as ?exclude=1,2,3.
func (h *Handler) professors(c *gin.Context) {
	var exclude []int64
	for _, v := range strings.Split(c.Query("exclude"), ",") {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			exclude = append(exclude, n)
		}
	}
	list, err := h.svc.Professors(c.Request.Context(), exclude)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) requestInstructor(c *gin.Context) {
	var req struct {
		InstructorID int64 `json:"instructorId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	if err := h.svc.RequestInstructor(c.Request.Context(), user(c).ID, req.InstructorID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Request sent! Waiting for admin approval."})
}

func (h *Handler) availability(c *gin.Context) {
	av, err := h.svc.Availability(c.Request.Context(), user(c).ID, queryID(c, "instructorId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, av)
}

func (h *Handler) myBookings(c *gin.Context) {
	list, err := h.svc.MyBookings(c.Request.Context(), user(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type mutation func(ctx context.Context, studentID int64, a portal.Action) (*portal.Result, error)

// act runs a student mutation. fill copies path parameters into the body.
func (h *Handler) act(fn mutation, fill func(c *gin.Context, a *portal.Action) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := h.bindAction(c)
		if !ok {
			return
		}
		if fill != nil && !fill(c, &a) {
			return
		}
		res, err := fn(c.Request.Context(), user(c).ID, a)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) withBookingID(c *gin.Context, a *portal.Action) bool {
	id, ok := h.pathID(c, "id")
	a.BookingID = id
	return ok
}

func (h *Handler) withGroupID(c *gin.Context, a *portal.Action) bool {
	id, ok := h.pathID(c, "id")
	a.GroupID = id
	return ok
}

func (h *Handler) groupManagement(c *gin.Context) {
	board, err := h.svc.GroupManagement(c.Request.Context(), user(c).ID, queryID(c, "instructorId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handler) groupMembers(c *gin.Context) {
	gid, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.GroupMembers(c.Request.Context(), gid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"appointment-portal/internal/model"
	"appointment-portal/internal/portal"
)

type studentPage struct {
	User         model.User           `json:"user"`
	Instructors  []model.User         `json:"instructors"`
	Availability *portal.Availability `json:"availability,omitempty"`
}

// studentView lists the instructors and, once one is picked with
// ?instructorId=, what the student can still book with them.
func (h *Handler) studentView(c *gin.Context) {
	u := user(c)
	page := studentPage{User: u}
	instructorID := queryID(c, "instructorId")

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		page.Instructors, err = h.svc.Instructors(ctx)
		return err
	})
	if instructorID > 0 {
		g.Go(func() (err error) {
			page.Availability, err = h.svc.Availability(ctx, u.ID, instructorID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type groupPage struct {
	User        model.User         `json:"user"`
	Instructors []model.User       `json:"instructors"`
	Board       *portal.GroupBoard `json:"board,omitempty"`
}

func (h *Handler) groupManagementView(c *gin.Context) {
	u := user(c)
	page := groupPage{User: u}
	instructorID := queryID(c, "instructorId")

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		page.Instructors, err = h.svc.Instructors(ctx)
		return err
	})
	if instructorID > 0 {
		g.Go(func() (err error) {
			page.Board, err = h.svc.GroupManagement(ctx, u.ID, instructorID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) instructorView(c *gin.Context) {
	u := user(c)
	b, err := h.svc.InstructorBoard(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "board": b})
}

func (h *Handler) taView(c *gin.Context) {
	u := user(c)
	d, err := h.svc.TADashboard(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "dashboard": d})
}

func (h *Handler) adminView(c *gin.Context) {
	u := user(c)
	b, err := h.svc.AdminBoard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "pending": b})
}

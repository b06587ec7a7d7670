package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"appointment-portal/internal/export"
	"appointment-portal/internal/model"
	"appointment-portal/internal/portal"
)

// instructor

func (h *Handler) instructorBoard(c *gin.Context) {
	b, err := h.svc.InstructorBoard(c.Request.Context(), user(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) createSlot(c *gin.Context) {
	var in portal.SlotInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c)
		return
	}
	sl, err := h.svc.CreateSlot(c.Request.Context(), user(c).ID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sl)
}

func (h *Handler) deleteSlot(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	kind := model.SlotKind(c.Param("kind"))
	if err := h.svc.DeleteSlot(c.Request.Context(), user(c).ID, kind, id, confirmQuery(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment deleted successfully"})
}

func (h *Handler) roster(c *gin.Context) {
	gid, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.Roster(c.Request.Context(), user(c).ID, gid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ta

func (h *Handler) taBookings(c *gin.Context) {
	d, err := h.svc.TADashboard(c.Request.Context(), user(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) taExport(c *gin.Context) {
	d, err := h.svc.TADashboard(c.Request.Context(), user(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.TADashboard(&buf, d); err != nil {
		h.log.Error("ta export", user(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export bookings"})
		return
	}
	name := fmt.Sprintf("bookings-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxType, buf.Bytes())
}

// admin

func (h *Handler) adminBoard(c *gin.Context) {
	b, err := h.svc.AdminBoard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) pendingUsers(c *gin.Context) {
	role, _ := strconv.Atoi(c.Query("role"))
	list, err := h.svc.PendingUsers(c.Request.Context(), model.Role(role))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) allUsers(c *gin.Context) {
	list, err := h.svc.AllUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) bookings(c *gin.Context) {
	var f portal.BookingFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.badRequest(c)
		return
	}
	list, err := h.svc.Bookings(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) slots(c *gin.Context) {
	o, err := h.svc.Slots(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type decision struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) bindDecision(c *gin.Context) (decision, bool) {
	var d decision
	if c.Request.ContentLength == 0 {
		return d, true
	}
	if err := c.ShouldBindJSON(&d); err != nil {
		h.badRequest(c)
		return d, false
	}
	return d, true
}

func (h *Handler) decideUser(approve bool, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c, "id")
		if !ok {
			return
		}
		d, ok := h.bindDecision(c)
		if !ok {
			return
		}
		if err := h.svc.DecideUser(c.Request.Context(), id, approve, d.Confirm); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

func (h *Handler) approveUser(c *gin.Context) {
	h.decideUser(true, "User approved successfully")(c)
}

func (h *Handler) rejectUser(c *gin.Context) {
	h.decideUser(false, "User rejected successfully")(c)
}

// deleteUser removes the account and logs it out everywhere.
func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), id, confirmQuery(c)); err != nil {
		h.fail(c, err)
		return
	}
	if _, err := h.sessions.EndUser(c.Request.Context(), id); err != nil {
		h.log.Warn("ending sessions of deleted user", id, err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *Handler) decideMapping(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c, "id")
		if !ok {
			return
		}
		d, ok := h.bindDecision(c)
		if !ok {
			return
		}
		kind := model.MappingKind(c.Param("kind"))
		if err := h.svc.DecideMapping(c.Request.Context(), kind, id, approve, d.Confirm); err != nil {
			h.fail(c, err)
			return
		}
		msg := "Request rejected"
		if approve {
			msg = "Request approved"
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

func (h *Handler) approveMapping(c *gin.Context) {
	h.decideMapping(true)(c)
}

func (h *Handler) rejectMapping(c *gin.Context) {
	h.decideMapping(false)(c)
}

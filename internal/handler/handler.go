// Package handler is the portal's HTTP surface: role views that return
// display-ready JSON and the /api actions behind them.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointment-portal/internal/health"
	"appointment-portal/internal/logger"
	"appointment-portal/internal/middleware"
	"appointment-portal/internal/model"
	"appointment-portal/internal/portal"
	"appointment-portal/internal/session"
	"appointment-portal/internal/validate"
)

type Deps struct {
	Service  *portal.Service
	Sessions *session.Manager
	Limiter  *middleware.RateLimiter
	Prober   *health.Prober
	Log      logger.Logger

	AllowedOrigins []string
	TrustedProxies []string
	SecureCookie   bool
}

type Handler struct {
	svc      *portal.Service
	sessions *session.Manager
	limiter  *middleware.RateLimiter
	prober   *health.Prober
	log      logger.Logger

	origins map[string]bool
	proxies []string
	secure  bool
}

func New(d Deps) *Handler {
	origins := make(map[string]bool, len(d.AllowedOrigins))
	for _, o := range d.AllowedOrigins {
		origins[o] = true
	}
	return &Handler{
		svc:      d.Service,
		sessions: d.Sessions,
		limiter:  d.Limiter,
		prober:   d.Prober,
		log:      d.Log,
		origins:  origins,
		proxies:  d.TrustedProxies,
		secure:   d.SecureCookie,
	}
}

func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	// ClientIP feeds the login limiter; only listed proxies may set it
	if err := r.SetTrustedProxies(h.proxies); err != nil {
		h.log.Error("trusted proxies, trusting none", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Logger(), gin.Recovery(), middleware.LoadSession(h.sessions))

	// public
	r.GET("/health", h.health)
	r.GET("/login", h.loginView)
	r.POST("/login", middleware.RateLimit(h.limiter), h.login)
	r.POST("/register", middleware.RateLimit(h.limiter), h.register)
	r.POST("/logout", h.logout)

	// views
	view := middleware.RequireSession(true)
	r.GET("/", view, h.home)
	r.GET("/student-scheduler", view, middleware.RequireRole(true, model.RoleStudent), h.studentView)
	r.GET("/group-management", view, middleware.RequireRole(true, model.RoleStudent), h.groupManagementView)
	r.GET("/instructor-scheduler", view, middleware.RequireRole(true, model.RoleInstructor), h.instructorView)
	r.GET("/ta-dashboard", view, middleware.RequireRole(true, model.RoleTA), h.taView)
	r.GET("/admin", view, middleware.RequireRole(true, model.RoleAdmin), h.adminView)

	api := r.Group("/api", middleware.RequireSession(false))
	{
		api.GET("/session", h.currentSession)
		api.GET("/session/stream", h.sessionStream)
	}

	st := api.Group("/student", middleware.RequireRole(false, model.RoleStudent))
	{
		st.GET("/instructors", h.instructors)
		st.GET("/professors", h.professors)
		st.POST("/instructor-requests", h.requestInstructor)
		st.GET("/availability", h.availability)
		st.GET("/bookings", h.myBookings)
		st.POST("/bookings/individual", h.act(h.svc.BookIndividual, nil))
		st.POST("/bookings/group", h.act(h.svc.BookGroup, nil))
		st.POST("/bookings/group-all", h.act(h.svc.BookGroupForAll, nil))
		st.POST("/bookings/:id/cancel", h.act(h.svc.CancelBooking, h.withBookingID))
		st.POST("/bookings/:id/cancel-group", h.act(h.svc.CancelGroupBooking, h.withBookingID))
		st.GET("/groups", h.groupManagement)
		st.GET("/groups/:id/members", h.groupMembers)
		st.POST("/groups/:id/join", h.act(h.svc.JoinGroup, h.withGroupID))
		st.POST("/groups/:id/leave", h.act(h.svc.LeaveGroup, h.withGroupID))
	}

	in := api.Group("/instructor", middleware.RequireRole(false, model.RoleInstructor))
	{
		in.GET("/slots", h.instructorBoard)
		in.POST("/slots", h.createSlot)
		in.DELETE("/slots/:kind/:id", h.deleteSlot)
		in.GET("/groups/:id/members", h.roster)
	}

	ta := api.Group("/ta", middleware.RequireRole(false, model.RoleTA))
	{
		ta.GET("/bookings", h.taBookings)
		ta.GET("/bookings/export", h.taExport)
	}

	ad := api.Group("/admin", middleware.RequireRole(false, model.RoleAdmin))
	{
		ad.GET("/pending", h.adminBoard)
		ad.GET("/pending-users", h.pendingUsers)
		ad.GET("/users", h.allUsers)
		ad.GET("/bookings", h.bookings)
		ad.GET("/slots", h.slots)
		ad.POST("/users/:id/approve", h.approveUser)
		ad.POST("/users/:id/reject", h.rejectUser)
		ad.DELETE("/users/:id", h.deleteUser)
		ad.POST("/mappings/:kind/:id/approve", h.approveMapping)
		ad.POST("/mappings/:kind/:id/reject", h.rejectMapping)
	}

	return r
}

func (h *Handler) health(c *gin.Context) {
	rep := h.prober.Report()
	code := http.StatusOK
	if rep.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, rep)
}

// user is the session user; routes behind RequireSession always have one.
func user(c *gin.Context) model.User {
	return middleware.Current(c).User
}

var httpStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusUnprocessableEntity,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.Unavailable:        http.StatusBadGateway,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.Canceled:           http.StatusServiceUnavailable,
}

// fail renders err as the notification the page shows.
func (h *Handler) fail(c *gin.Context, err error) {
	st := status.Convert(err)
	code, ok := httpStatus[st.Code()]
	if !ok {
		code = http.StatusInternalServerError
		h.log.Error("unmapped error", c.FullPath(), err)
	}
	body := gin.H{"error": st.Message()}
	if f := validate.Fields(err); len(f) > 0 {
		body["fields"] = f
	}
	c.JSON(code, body)
}

func (h *Handler) badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

// pathID reads a positive id path parameter, answering 400 when it is not.
func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		h.badRequest(c)
		return 0, false
	}
	return v, true
}

// queryID reads an optional id query parameter; absent or malformed is 0.
func queryID(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// bindAction decodes an optional Action body. An empty body is a zero Action.
func (h *Handler) bindAction(c *gin.Context) (portal.Action, bool) {
	var a portal.Action
	if c.Request.ContentLength == 0 {
		return a, true
	}
	if err := c.ShouldBindJSON(&a); err != nil {
		h.badRequest(c)
		return a, false
	}
	return a, true
}

func confirmQuery(c *gin.Context) bool {
	ok, _ := strconv.ParseBool(c.Query("confirm"))
	return ok
}

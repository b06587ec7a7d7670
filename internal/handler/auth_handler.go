package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"appointment-portal/internal/middleware"
	"appointment-portal/internal/model"
	"appointment-portal/internal/portal"
)

type loginRequest struct {
	portal.Credentials
	ReturnURL string `json:"returnUrl"`
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, expires time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, token, int(time.Until(expires).Seconds()), "/", "", h.secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.secure, true)
}

// loginView echoes a usable returnUrl and, for a live session, where the
// browser should go instead of the form.
func (h *Handler) loginView(c *gin.Context) {
	body := gin.H{"returnUrl": middleware.SafeReturnURL(c.Query("returnUrl"))}
	if s := middleware.Current(c); s != nil {
		body["user"] = s.User
		body["redirect"] = s.User.Role.Home()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	u, err := h.svc.Login(c.Request.Context(), req.Credentials)
	if err != nil {
		h.fail(c, err)
		return
	}

	tok, s, err := h.sessions.Start(c.Request.Context(), middleware.Token(c), u)
	if err != nil {
		h.log.Error("starting session", u, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed. Please try again."})
		return
	}
	h.setSessionCookie(c, tok, s.ExpiresAt)

	redirect := middleware.SafeReturnURL(req.ReturnURL)
	if redirect == "" {
		redirect = u.Role.Home()
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful!",
		"user":     u,
		"token":    tok,
		"redirect": redirect,
	})
}

func (h *Handler) register(c *gin.Context) {
	var req portal.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Registration successful! Please wait for admin approval.",
		"user":     u,
		"redirect": "/login",
	})
}

func (h *Handler) logout(c *gin.Context) {
	if tok := middleware.Token(c); tok != "" {
		if err := h.sessions.End(c.Request.Context(), tok); err != nil {
			h.log.Warn("ending session", err)
		}
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"redirect": "/login"})
}

func (h *Handler) home(c *gin.Context) {
	c.Redirect(http.StatusFound, user(c).Role.Home())
}

func (h *Handler) currentSession(c *gin.Context) {
	s := middleware.Current(c)
	c.JSON(http.StatusOK, gin.H{"user": s.User, "expiresAt": s.ExpiresAt})
}

type sessionEvent struct {
	User *model.User `json:"user"`
}

const (
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || h.origins[o]
		},
	}
}

// sessionStream pushes the session's user now and after every change; a
// null user means the session was logged out, and the stream then ends.
func (h *Handler) sessionStream(c *gin.Context) {
	s := middleware.Current(c)
	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already answered the request
		return
	}
	defer conn.Close()

	updates, cancel := h.sessions.Subscribe(s.ID)
	defer cancel()

	// reads only to notice the browser going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(u *model.User) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(sessionEvent{User: u})
	}

	current := s.User
	if err := send(&current); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := send(u); err != nil || u == nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"

	"appointment-portal/internal/backend"
	"appointment-portal/internal/handler"
	ph "appointment-portal/internal/health"
	"appointment-portal/internal/logger"
	"appointment-portal/internal/middleware"
	"appointment-portal/internal/portal"
	"appointment-portal/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	instructorID = 10
	taID         = 20
	studentID    = 30
	adminID      = 40
)

// services fakes the four backends on one listener.
type services struct {
	mu       sync.Mutex
	bookings []map[string]any
	statuses map[string]string
	bookErr  int // status to fail individual bookings with
	deleted  []string
}

func user(id, role int, email, first string) map[string]any {
	return map[string]any{
		"userId": id, "email": email, "firstName": first, "lastName": "Test",
		"role": map[string]any{"roleId": role, "roleName": "x"},
	}
}

var users = []map[string]any{
	user(instructorID, 1, "prof@uni.test", "Pat"),
	user(taID, 2, "ta@uni.test", "Tia"),
	user(studentID, 3, "stud@uni.test", "Sam"),
	user(adminID, 4, "admin@uni.test", "Ada"),
}

func slotJSON(id int) map[string]any {
	return map[string]any{
		"appointmentId": id, "instructorId": instructorID, "appointmentDate": "2026-03-02",
		"startTime": "09:00", "endTime": "09:30", "status": "available", "location": "B12",
	}
}

func (s *services) handler() http.Handler {
	mux := http.NewServeMux()
	js := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("GET /api/users/getusers", func(w http.ResponseWriter, r *http.Request) { js(w, users) })
	mux.HandleFunc("GET /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, u := range users {
			if fmt.Sprint(u["userId"]) == r.PathValue("id") {
				js(w, u)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		js(w, map[string]string{"message": "User not found"})
	})
	mux.HandleFunc("DELETE /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deleted = append(s.deleted, r.PathValue("id"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/users/ta/{id}/assigned-instructor", func(w http.ResponseWriter, r *http.Request) {
		js(w, users[0])
	})

	mux.HandleFunc("GET /appointments/individual", func(w http.ResponseWriter, r *http.Request) {
		js(w, []any{slotJSON(1), slotJSON(2)})
	})
	mux.HandleFunc("GET /appointments/individual/instructor/{id}", func(w http.ResponseWriter, r *http.Request) {
		js(w, []any{slotJSON(1), slotJSON(2)})
	})
	mux.HandleFunc("PUT /appointments/individual/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.statuses[r.PathValue("id")] = body["status"]
		s.mu.Unlock()
	})

	mux.HandleFunc("GET /groups/getgroups", func(w http.ResponseWriter, r *http.Request) { js(w, []any{}) })
	mux.HandleFunc("GET /groupappointments/by-instructor/{id}", func(w http.ResponseWriter, r *http.Request) { js(w, []any{}) })

	list := func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		js(w, append([]map[string]any{}, s.bookings...))
	}
	mux.HandleFunc("GET /api/scheduler/bookings/all", list)
	mux.HandleFunc("GET /api/scheduler/bookings/individual", list)
	mux.HandleFunc("GET /api/scheduler/bookings/group", func(w http.ResponseWriter, r *http.Request) { js(w, []any{}) })
	mux.HandleFunc("POST /api/scheduler/book/individual", func(w http.ResponseWriter, r *http.Request) {
		if s.bookErr != 0 {
			w.WriteHeader(s.bookErr)
			js(w, map[string]string{"message": "Slot already booked"})
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		b := map[string]any{
			"bookingId": len(s.bookings) + 1, "studentId": req["studentId"], "bookingType": "individual",
			"appointmentId": req["appointmentId"], "status": req["status"],
		}
		s.bookings = append(s.bookings, b)
		s.mu.Unlock()
		js(w, b)
	})
	return mux
}

type env struct {
	t        *testing.T
	svc      *services
	sessions *session.Manager
	router   *gin.Engine
}

func setup(t *testing.T, opts ...func(*handler.Deps)) *env {
	t.Helper()
	svc := &services{statuses: make(map[string]string)}
	backends := httptest.NewServer(svc.handler())
	t.Cleanup(backends.Close)

	l := logger.NewStd(log.New(io.Discard, "", 0))
	clients := backend.New(backend.URLs{
		Users: backends.URL, Groups: backends.URL, Individual: backends.URL, Scheduler: backends.URL,
	}, 5*time.Second)
	sessions := session.NewManager(session.NewMemoryStore(), "test-secret", time.Hour)

	deps := handler.Deps{
		Service:        portal.NewFromClients(clients, l),
		Sessions:       sessions,
		Limiter:        middleware.NewRateLimiter(100, 100),
		Prober:         ph.NewProber(health.NewServer(), map[string]string{"users": backends.URL}, time.Second),
		Log:            l,
		AllowedOrigins: []string{"http://localhost:4200"},
	}
	for _, o := range opts {
		o(&deps)
	}
	h := handler.New(deps)
	return &env{t: t, svc: svc, sessions: sessions, router: h.Router()}
}

func (e *env) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	return nil
}

func (e *env) login(email string) *http.Cookie {
	e.t.Helper()
	w := e.do(http.MethodPost, "/login", map[string]string{"email": email, "password": "secret1"}, nil)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	c := sessionCookie(w)
	require.NotNil(e.t, c)
	return c
}

// ----- login / guard -----

func TestGuardLoginAndReturn(t *testing.T) {
	e := setup(t)

	w := e.do(http.MethodGet, "/student-scheduler?instructorId=10", nil, nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.Equal(t, "/login?returnUrl=%2Fstudent-scheduler%3FinstructorId%3D10", loc)

	w = e.do(http.MethodGet, loc, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/student-scheduler?instructorId=10", decode(t, w)["returnUrl"])

	w = e.do(http.MethodPost, "/login", map[string]string{
		"email": "STUD@uni.test", "password": "secret1", "returnUrl": "/student-scheduler?instructorId=10",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "/student-scheduler?instructorId=10", body["redirect"])
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)

	w = e.do(http.MethodGet, "/student-scheduler?instructorId=10", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode(t, w)
	av := page["availability"].(map[string]any)
	assert.Len(t, av["individual"], 2)
	assert.Len(t, page["instructors"], 1)
}

func TestLoginIgnoresForeignReturnURL(t *testing.T) {
	e := setup(t)
	w := e.do(http.MethodPost, "/login", map[string]string{
		"email": "ta@uni.test", "password": "secret1", "returnUrl": "//evil.example/",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/ta-dashboard", decode(t, w)["redirect"])
}

func TestLoginFailures(t *testing.T) {
	e := setup(t)

	w := e.do(http.MethodPost, "/login", map[string]string{"email": "nobody@uni.test", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["error"])
	assert.Nil(t, sessionCookie(w))

	w = e.do(http.MethodPost, "/login", map[string]string{"email": "not-an-email", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	e := setup(t, func(d *handler.Deps) {
		d.Limiter = middleware.NewRateLimiter(1, 2)
	})
	body, _ := json.Marshal(map[string]string{"email": "nobody@uni.test", "password": "secret1"})

	limited := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.GreaterOrEqual(t, limited, 7)
}

func TestWrongRole(t *testing.T) {
	e := setup(t)
	cookie := e.login("stud@uni.test")

	w := e.do(http.MethodGet, "/admin", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/student-scheduler", w.Header().Get("Location"))

	w = e.do(http.MethodGet, "/api/admin/pending", nil, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodGet, "/api/admin/pending", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/student-scheduler", w.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	e := setup(t)
	cookie := e.login("stud@uni.test")

	w := e.do(http.MethodGet, "/api/session", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/login", decode(t, w)["redirect"])

	w = e.do(http.MethodGet, "/api/session", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ----- booking -----

func TestBookIndividual(t *testing.T) {
	e := setup(t)
	cookie := e.login("stud@uni.test")

	w := e.do(http.MethodPost, "/api/student/bookings/individual",
		map[string]any{"appointmentId": 1, "instructorId": instructorID}, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "confirmation required", decode(t, w)["error"])
	assert.Empty(t, e.svc.bookings)

	w = e.do(http.MethodPost, "/api/student/bookings/individual",
		map[string]any{"appointmentId": 1, "instructorId": instructorID, "confirm": true}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "Appointment booked successfully!", res["message"])

	individual := res["availability"].(map[string]any)["individual"].([]any)
	require.Len(t, individual, 1)
	assert.EqualValues(t, 2, individual[0].(map[string]any)["id"])

	e.svc.mu.Lock()
	assert.Equal(t, "booked", e.svc.statuses["1"])
	e.svc.mu.Unlock()
}

func TestBookIndividualConflict(t *testing.T) {
	e := setup(t)
	e.svc.bookErr = http.StatusConflict
	cookie := e.login("stud@uni.test")

	w := e.do(http.MethodPost, "/api/student/bookings/individual",
		map[string]any{"appointmentId": 1, "confirm": true}, cookie)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Slot already booked", decode(t, w)["error"])
}

func TestCancelNeedsReason(t *testing.T) {
	e := setup(t)
	cookie := e.login("stud@uni.test")

	w := e.do(http.MethodPost, "/api/student/bookings/5/cancel", map[string]any{"confirm": true, "reason": "  "}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Cancellation reason is required", body["error"])
	assert.Contains(t, body["fields"], "reason")

	w = e.do(http.MethodPost, "/api/student/bookings/abc/cancel", map[string]any{"confirm": true}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ----- ta -----

func TestTADashboardAndExport(t *testing.T) {
	e := setup(t)
	e.svc.bookings = []map[string]any{
		{"bookingId": 1, "studentId": studentID, "bookingType": "individual", "appointmentId": 1, "status": "confirmed"},
	}
	cookie := e.login("ta@uni.test")

	w := e.do(http.MethodGet, "/api/ta/bookings", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := decode(t, w)
	rows := d["individual"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sam", rows[0].(map[string]any)["student"].(map[string]any)["firstName"])

	w = e.do(http.MethodGet, "/api/ta/bookings/export", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	// xlsx files are zip archives
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

// ----- admin -----

func TestDeleteUserEndsSessions(t *testing.T) {
	e := setup(t)
	admin := e.login("admin@uni.test")
	student := e.login("stud@uni.test")

	s, err := e.sessions.Resolve(context.Background(), student.Value)
	require.NoError(t, err)
	events, cancel := e.sessions.Subscribe(s.ID)
	defer cancel()

	w := e.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", studentID), nil, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(http.MethodDelete, fmt.Sprintf("/api/admin/users/%d?confirm=true", studentID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "User deleted successfully", decode(t, w)["message"])
	e.svc.mu.Lock()
	assert.Equal(t, []string{fmt.Sprint(studentID)}, e.svc.deleted)
	e.svc.mu.Unlock()

	select {
	case u := <-events:
		assert.Nil(t, u)
	case <-time.After(time.Second):
		t.Fatal("open session not told about the deletion")
	}

	w = e.do(http.MethodGet, "/api/session", nil, student)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(http.MethodGet, "/api/session", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ----- session stream -----

func TestSessionStream(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()
	cookie := e.login("stud@uni.test")

	hdr := http.Header{}
	hdr.Set("Cookie", cookie.String())
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/session/stream", hdr)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev struct {
		User *struct {
			ID    int64  `json:"userId"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	require.NotNil(t, ev.User)
	assert.EqualValues(t, studentID, ev.User.ID)

	w := e.do(http.MethodPost, "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	ev.User = nil
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Nil(t, ev.User)
}

func TestHealth(t *testing.T) {
	e := setup(t)
	w := e.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

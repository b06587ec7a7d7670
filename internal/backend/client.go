// Package backend holds the REST clients for the services the portal sits in
// front of: users, groups, individual appointments and the scheduler.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// APIError is a non-2xx answer from a backend service.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string // server-provided, may be empty
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.Status)
}

const maxBody = 4 << 20

type client struct {
	base string
	http *http.Client
}

func newClient(base string, hc *http.Client) *client {
	return &client{base: strings.TrimRight(base, "/"), http: hc}
}

func (c *client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s", method, path)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: serverMessage(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s", method, path)
	}
	return nil
}

// serverMessage digs the human readable message out of an error body:
// {"message": ...}, {"error": ...}, a JSON string, or short plain text.
func serverMessage(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}

	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Error
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}

	// html error pages are noise
	if data[0] == '<' || len(data) > 300 {
		return ""
	}
	return string(data)
}

// URLs are the base addresses of the backend services.
type URLs struct {
	Users      string
	Groups     string
	Individual string
	Scheduler  string
}

type Clients struct {
	Users      *Users
	Groups     *Groups
	Individual *Individual
	Scheduler  *Scheduler
}

func New(urls URLs, timeout time.Duration) Clients {
	hc := &http.Client{Timeout: timeout}
	return Clients{
		Users:      &Users{c: newClient(urls.Users, hc)},
		Groups:     &Groups{c: newClient(urls.Groups, hc)},
		Individual: &Individual{c: newClient(urls.Individual, hc)},
		Scheduler:  &Scheduler{c: newClient(urls.Scheduler, hc)},
	}
}

func id(v int64) string {
	return fmt.Sprintf("%d", v)
}

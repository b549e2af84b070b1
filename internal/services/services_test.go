package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/shared"
	tu "github.com/desertthunder/tdx/internal/testing"
)

func TestNewTaskClient(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		c := NewTaskClient(Options{})

		if c.BaseURL() != DefaultBaseURL {
			t.Errorf("expected default base URL %s, got %s", DefaultBaseURL, c.BaseURL())
		}
		if c.transport != http.DefaultTransport {
			t.Error("expected http.DefaultTransport to be used")
		}
		if c.limiter != nil {
			t.Error("expected no limiter when rate is zero")
		}
		if _, ok := c.token(); ok {
			t.Error("expected default token func to report no session")
		}
	})

	t.Run("Trims trailing slash", func(t *testing.T) {
		c := NewTaskClient(Options{BaseURL: "http://example.com/api/v1/"})
		if c.BaseURL() != "http://example.com/api/v1" {
			t.Errorf("unexpected base URL %s", c.BaseURL())
		}
	})

	t.Run("Limiter", func(t *testing.T) {
		c := NewTaskClient(Options{RequestsPerSecond: 0.5})
		if c.limiter == nil {
			t.Fatal("expected limiter")
		}
		if c.limiter.Burst() != 1 {
			t.Errorf("expected burst 1, got %d", c.limiter.Burst())
		}
	})
}

func TestDoRequest(t *testing.T) {
	t.Run("Sets request id and bearer token", func(t *testing.T) {
		var gotAuth, gotID string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotID = r.Header.Get(RequestIDHeader)
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `[]`)
		}))
		defer server.Close()

		c := NewTaskClient(Options{
			BaseURL: server.URL,
			Token:   func() (string, bool) { return "abc.def.ghi", true },
		})

		if _, err := c.ListTasks(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotAuth != "Bearer abc.def.ghi" {
			t.Errorf("expected bearer header, got %q", gotAuth)
		}
		if gotID == "" {
			t.Error("expected X-Request-ID header")
		}
	})

	t.Run("Omits authorization without session", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"Not authenticated"}`)
		}))
		defer server.Close()

		c := NewTaskClient(Options{BaseURL: server.URL})
		_, err := c.ListTasks(context.Background())

		if gotAuth != "" {
			t.Errorf("expected no Authorization header, got %q", gotAuth)
		}
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Login credentials are not sent as bearer", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"access_token":"a.b.c","token_type":"bearer","user":{"id":1,"email":"x@y.z"}}`)),
			Header:     make(http.Header),
		}, nil)

		c := NewTaskClient(Options{
			BaseURL:   "http://svc",
			Transport: rt,
			Token:     func() (string, bool) { return "stale.token.value", true },
		})

		resp, err := c.Login(context.Background(), "x@y.z", "pw")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.User.ID != "1" {
			t.Errorf("expected numeric id to decode as \"1\", got %q", resp.User.ID)
		}

		reqs := rt.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected 1 request, got %d", len(reqs))
		}
		req := reqs[0]
		if req.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer token")
		}
		if req.URL.Query().Get("email") != "x@y.z" || req.URL.Query().Get("password") != "pw" {
			t.Errorf("expected credentials in query, got %s", req.URL.RawQuery)
		}
	})

	t.Run("Transport failure", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, errors.New("connection refused"))
		c := NewTaskClient(Options{BaseURL: "http://svc", Transport: rt})

		_, err := c.ListTasks(context.Background())
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`not json`)),
			Header:     make(http.Header),
		}, nil)
		c := NewTaskClient(Options{BaseURL: "http://svc", Transport: rt})

		_, err := c.ListTasks(context.Background())
		if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
			t.Errorf("expected decode error, got %v", err)
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		t.Run("success status", func(t *testing.T) {
			rt := tu.NewMockRoundTripper(&http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: make(http.Header)}, nil)
			c := NewTaskClient(Options{BaseURL: "http://svc", Transport: rt})

			_, err := c.ListTasks(context.Background())
			if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
				t.Errorf("expected decode error, got %v", err)
			}
		})

		t.Run("error status keeps status code", func(t *testing.T) {
			rt := tu.NewMockRoundTripper(&http.Response{StatusCode: http.StatusBadGateway, Body: &tu.FCloser{}, Header: make(http.Header)}, nil)
			c := NewTaskClient(Options{BaseURL: "http://svc", Transport: rt})

			_, err := c.ListTasks(context.Background())
			if !IsStatus(err, http.StatusBadGateway) {
				t.Errorf("expected 502 APIError, got %v", err)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("Cancelled context waits on limiter", func(t *testing.T) {
		c := NewTaskClient(Options{BaseURL: "http://svc", RequestsPerSecond: 1})
		c.limiter.Allow()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := c.ListTasks(ctx)
		if err == nil || !strings.Contains(err.Error(), "rate limiter") {
			t.Errorf("expected rate limiter error, got %v", err)
		}
	})
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Task not found"}`, "Task not found"},
		{"validation detail", `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required; too short"},
		{"no detail", `{"error":"boom"}`, `{"error":"boom"}`},
		{"plain text", "Internal Server Error", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("parseDetail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	err := error(&APIError{StatusCode: 404, Detail: "Task not found"})

	if !IsStatus(err, http.StatusNotFound) {
		t.Error("expected IsStatus to match 404")
	}
	if errors.Is(err, shared.ErrNotAuthenticated) {
		t.Error("404 should not match ErrNotAuthenticated")
	}
	if !strings.Contains(err.Error(), "Task not found") {
		t.Errorf("expected detail in message, got %q", err.Error())
	}
	if IsStatus(errors.New("other"), http.StatusNotFound) {
		t.Error("plain errors should not match")
	}
}

func TestTaskClientAgainstService(t *testing.T) {
	ctx := context.Background()

	newClient := func(t *testing.T) (*TaskClient, *tu.FakeAPI, *string) {
		fake := tu.NewFakeAPI(t)
		token := new(string)
		c := NewTaskClient(Options{
			BaseURL: fake.URL(),
			Token:   func() (string, bool) { return *token, *token != "" },
		})
		return c, fake, token
	}

	t.Run("Register then login", func(t *testing.T) {
		c, _, _ := newClient(t)

		reg, err := c.Register(ctx, models.RegisterRequest{Email: "ada@example.com", Password: "pw", FirstName: "Ada"})
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if reg.Email != "ada@example.com" || reg.ID == "" || len(reg.Raw) == 0 {
			t.Errorf("unexpected register response: %+v", reg)
		}

		_, err = c.Register(ctx, models.RegisterRequest{Email: "ada@example.com", Password: "pw"})
		if !IsStatus(err, http.StatusConflict) {
			t.Errorf("expected 409 on duplicate register, got %v", err)
		}

		resp, err := c.Login(ctx, "ada@example.com", "pw")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if resp.AccessToken == "" || resp.User.Email != "ada@example.com" || resp.User.ID != reg.ID {
			t.Errorf("unexpected login response: %+v", resp)
		}
	})

	t.Run("Login with bad password", func(t *testing.T) {
		c, fake, _ := newClient(t)
		fake.AddUser("ada@example.com", "pw")

		_, err := c.Login(ctx, "ada@example.com", "nope")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Detail != "Incorrect email or password" {
			t.Errorf("unexpected error: %+v", apiErr)
		}
	})

	t.Run("Verify", func(t *testing.T) {
		c, fake, _ := newClient(t)
		id := fake.AddUser("ada@example.com", "pw")

		res, err := c.Verify(ctx, tu.MustToken(t, id, "ada@example.com"))
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if !res.Valid || res.UserID != id {
			t.Errorf("unexpected verify result: %+v", res)
		}

		if _, err := c.Verify(ctx, "a.b.c"); !IsStatus(err, http.StatusUnauthorized) {
			t.Errorf("expected 401 for bad token, got %v", err)
		}
	})

	t.Run("Task CRUD", func(t *testing.T) {
		c, fake, token := newClient(t)
		id := fake.AddUser("ada@example.com", "pw")
		*token = tu.MustToken(t, id, "ada@example.com")

		tasks, err := c.ListTasks(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(tasks) != 0 {
			t.Fatalf("expected empty list, got %d", len(tasks))
		}

		created, err := c.CreateTask(ctx, models.TaskDraft{Title: "write tests"})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.ID == "" || created.Title != "write tests" || created.Description != nil || created.UserID != id {
			t.Errorf("unexpected created task: %+v", created)
		}

		updated, err := c.UpdateTask(ctx, created.ID, models.CompletedPatch(true))
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if !updated.Completed || updated.Title != "write tests" {
			t.Errorf("expected only completion to change, got %+v", updated)
		}

		got, err := c.GetTask(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !got.Completed {
			t.Error("expected fetched task to be completed")
		}

		if err := c.DeleteTask(ctx, created.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if fake.TaskCount(id) != 0 {
			t.Error("expected task to be removed server-side")
		}

		if _, err := c.GetTask(ctx, created.ID); !IsStatus(err, http.StatusNotFound) {
			t.Errorf("expected 404 after delete, got %v", err)
		}
	})

	t.Run("Injected failure", func(t *testing.T) {
		c, fake, token := newClient(t)
		id := fake.AddUser("ada@example.com", "pw")
		*token = tu.MustToken(t, id, "ada@example.com")
		fake.Fail(tu.OpList, http.StatusInternalServerError)

		_, err := c.ListTasks(ctx)
		if !IsStatus(err, http.StatusInternalServerError) {
			t.Errorf("expected 500, got %v", err)
		}
		if fake.Calls(tu.OpList) != 1 {
			t.Errorf("expected 1 list call, got %d", fake.Calls(tu.OpList))
		}
	})
}

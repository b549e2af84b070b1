package testing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Op names an endpoint of the task service for failure injection and call counting.
type Op string

const (
	OpRegister Op = "register"
	OpLogin    Op = "login"
	OpVerify   Op = "verify"
	OpList     Op = "list"
	OpGet      Op = "get"
	OpCreate   Op = "create"
	OpUpdate   Op = "update"
	OpDelete   Op = "delete"
)

// APIPrefix is the path prefix the fake serves under.
const APIPrefix = "/api/v1"

type fakeUser struct {
	id       string
	email    string
	password string
}

type fakeTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type detail struct {
	Detail string `json:"detail"`
}

// FakeAPI is an in-memory task service speaking the same HTTP contract as the real one.
type FakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	users    map[string]*fakeUser
	tasks    map[string][]*fakeTask
	calls    map[Op]int
	failures map[Op]int
}

// NewFakeAPI starts a fake service that is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:    make(map[string]*fakeUser),
		tasks:    make(map[string][]*fakeTask),
		calls:    make(map[Op]int),
		failures: make(map[Op]int),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api := e.Group(APIPrefix)
	api.POST("/auth/register", f.register)
	api.POST("/auth/login", f.login)
	api.POST("/auth/verify", f.verify)

	tasks := api.Group("/tasks", f.requireBearer)
	tasks.GET("/", f.listTasks)
	tasks.POST("/", f.createTask)
	tasks.GET("/:id", f.getTask)
	tasks.PUT("/:id", f.updateTask)
	tasks.DELETE("/:id", f.deleteTask)

	f.server = httptest.NewServer(e)
	t.Cleanup(f.server.Close)
	return f
}

// URL is the base URL clients should be configured with.
func (f *FakeAPI) URL() string {
	return f.server.URL + APIPrefix
}

// AddUser registers an account and returns its id.
func (f *FakeAPI) AddUser(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &fakeUser{id: uuid.NewString(), email: email, password: password}
	f.users[email] = u
	return u.id
}

// AddTask seeds a task for the user with the given id and returns the task id.
func (f *FakeAPI) AddTask(userID, title string, completed bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	task := &fakeTask{ID: uuid.NewString(), Title: title, Completed: completed, UserID: userID, CreatedAt: now, UpdatedAt: now}
	f.tasks[userID] = append(f.tasks[userID], task)
	return task.ID
}

// Fail makes every subsequent call to op answer with status until [FakeAPI.Recover] is called.
func (f *FakeAPI) Fail(op Op, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = status
}

// Recover clears an injected failure.
func (f *FakeAPI) Recover(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, op)
}

// Calls reports how many requests reached op.
func (f *FakeAPI) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TaskCount reports how many tasks the user owns on the server side.
func (f *FakeAPI) TaskCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks[userID])
}

func (f *FakeAPI) track(op Op) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	status, ok := f.failures[op]
	return status, ok
}

func injected(c echo.Context, status int) error {
	return c.JSON(status, detail{Detail: http.StatusText(status)})
}

func (f *FakeAPI) register(c echo.Context) error {
	if status, ok := f.track(OpRegister); ok {
		return injected(c, status)
	}

	var body struct {
		Email     string  `json:"email"`
		Password  string  `json:"password"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := c.Bind(&body); err != nil || body.Email == "" || body.Password == "" {
		return c.JSON(http.StatusUnprocessableEntity, detail{Detail: "email and password are required"})
	}

	f.mu.Lock()
	if _, exists := f.users[body.Email]; exists {
		f.mu.Unlock()
		return c.JSON(http.StatusConflict, detail{Detail: "User with this email already exists"})
	}
	u := &fakeUser{id: uuid.NewString(), email: body.Email, password: body.Password}
	f.users[body.Email] = u
	f.mu.Unlock()

	return c.JSON(http.StatusCreated, map[string]any{
		"id":         u.id,
		"email":      u.email,
		"first_name": body.FirstName,
		"last_name":  body.LastName,
		"created_at": time.Now().UTC(),
	})
}

func (f *FakeAPI) login(c echo.Context) error {
	if status, ok := f.track(OpLogin); ok {
		return injected(c, status)
	}

	email, password := c.QueryParam("email"), c.QueryParam("password")

	f.mu.Lock()
	u, ok := f.users[email]
	f.mu.Unlock()
	if !ok || u.password != password {
		return c.JSON(http.StatusUnauthorized, detail{Detail: "Incorrect email or password"})
	}

	token, err := SignToken(u.id, u.email, 30*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, detail{Detail: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         map[string]string{"id": u.id, "email": u.email},
	})
}

func (f *FakeAPI) verify(c echo.Context) error {
	if status, ok := f.track(OpVerify); ok {
		return injected(c, status)
	}

	sub, email, err := f.parse(c.QueryParam("token"))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, detail{Detail: "Could not validate credentials"})
	}
	return c.JSON(http.StatusOK, map[string]any{"valid": true, "user_id": sub, "email": email})
}

func (f *FakeAPI) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return c.JSON(http.StatusUnauthorized, detail{Detail: "Not authenticated"})
		}

		sub, _, err := f.parse(raw)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, detail{Detail: "Could not validate credentials"})
		}
		c.Set("user_id", sub)
		return next(c)
	}
}

func (f *FakeAPI) parse(raw string) (string, string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return TestSecret, nil
	})
	if err != nil {
		return "", "", err
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return "", "", errors.New("missing claims")
	}
	return sub, email, nil
}

func (f *FakeAPI) listTasks(c echo.Context) error {
	if status, ok := f.track(OpList); ok {
		return injected(c, status)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	owned := f.tasks[c.Get("user_id").(string)]
	out := make([]fakeTask, 0, len(owned))
	for _, task := range owned {
		out = append(out, *task)
	}
	return c.JSON(http.StatusOK, out)
}

func (f *FakeAPI) createTask(c echo.Context) error {
	if status, ok := f.track(OpCreate); ok {
		return injected(c, status)
	}

	var body struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Completed   bool    `json:"completed"`
	}
	if err := c.Bind(&body); err != nil || body.Title == "" {
		return c.JSON(http.StatusUnprocessableEntity, detail{Detail: "title is required"})
	}

	userID := c.Get("user_id").(string)
	now := time.Now().UTC()
	task := &fakeTask{
		ID:          uuid.NewString(),
		Title:       body.Title,
		Description: body.Description,
		Completed:   body.Completed,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	f.mu.Lock()
	f.tasks[userID] = append(f.tasks[userID], task)
	f.mu.Unlock()

	return c.JSON(http.StatusCreated, task)
}

func (f *FakeAPI) find(userID, id string) (*fakeTask, int) {
	for i, task := range f.tasks[userID] {
		if task.ID == id {
			return task, i
		}
	}
	return nil, -1
}

func (f *FakeAPI) getTask(c echo.Context) error {
	if status, ok := f.track(OpGet); ok {
		return injected(c, status)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	task, _ := f.find(c.Get("user_id").(string), c.Param("id"))
	if task == nil {
		return c.JSON(http.StatusNotFound, detail{Detail: "Task not found"})
	}
	return c.JSON(http.StatusOK, task)
}

func (f *FakeAPI) updateTask(c echo.Context) error {
	if status, ok := f.track(OpUpdate); ok {
		return injected(c, status)
	}

	var patch struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Completed   *bool   `json:"completed"`
	}
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, detail{Detail: err.Error()})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	task, _ := f.find(c.Get("user_id").(string), c.Param("id"))
	if task == nil {
		return c.JSON(http.StatusNotFound, detail{Detail: "Task not found"})
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	task.UpdatedAt = time.Now().UTC()

	return c.JSON(http.StatusOK, task)
}

func (f *FakeAPI) deleteTask(c echo.Context) error {
	if status, ok := f.track(OpDelete); ok {
		return injected(c, status)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	userID := c.Get("user_id").(string)
	_, idx := f.find(userID, c.Param("id"))
	if idx < 0 {
		return c.JSON(http.StatusNotFound, detail{Detail: "Task not found"})
	}

	owned := f.tasks[userID]
	f.tasks[userID] = append(owned[:idx], owned[idx+1:]...)
	return c.NoContent(http.StatusNoContent)
}

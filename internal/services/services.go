// TaskService client: options, construction and the service interface
package services

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tdx/internal/models"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// TaskService defines the operations the remote service exposes to the client.
type TaskService interface {
	// Login exchanges credentials for an access token.
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)

	// Register creates an account. It never returns a token.
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)

	// Verify asks the server whether token is still valid.
	Verify(ctx context.Context, token string) (*VerifyResult, error)

	ListTasks(ctx context.Context) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, draft models.TaskDraft) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// VerifyResult is the body of a successful verify call.
type VerifyResult struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// TokenFunc supplies the bearer token for task requests. It reports false when no session exists.
type TokenFunc func() (string, bool)

// Options configures a [TaskClient].
type Options struct {
	BaseURL string
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64

	// Transport is the base round tripper. Defaults to [http.DefaultTransport].
	Transport http.RoundTripper

	Token  TokenFunc
	Logger *log.Logger
}

// TaskClient talks to the remote task service over HTTP.
type TaskClient struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
	limiter   *rate.Limiter
	token     TokenFunc
	logger    *log.Logger
}

// NewTaskClient creates a client from opts, filling in defaults for zero values.
func NewTaskClient(opts Options) *TaskClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	token := opts.Token
	if token == nil {
		token = func() (string, bool) { return "", false }
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := max(int(opts.RequestsPerSecond), 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &TaskClient{
		baseURL:   baseURL,
		transport: transport,
		timeout:   opts.Timeout,
		limiter:   limiter,
		token:     token,
		logger:    logger,
	}
}

// BaseURL returns the resolved base URL.
func (c *TaskClient) BaseURL() string {
	return c.baseURL
}

var _ TaskService = (*TaskClient)(nil)

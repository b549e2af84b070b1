package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/desertthunder/tdx/internal/models"
)

// Login calls POST /auth/login. Credentials travel as query parameters, which is what the service expects.
func (c *TaskClient) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.doRequest(ctx, request{
		method:   http.MethodPost,
		endpoint: "/auth/login",
		query:    map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register calls POST /auth/register.
func (c *TaskClient) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	var raw json.RawMessage
	err := c.doRequest(ctx, request{
		method:   http.MethodPost,
		endpoint: "/auth/register",
		body:     req,
	}, &raw)
	if err != nil {
		return nil, err
	}

	resp := &models.RegisterResponse{Raw: raw}
	var user models.User
	if err := json.Unmarshal(raw, &user); err == nil {
		resp.ID = user.ID
		resp.Email = user.Email
	}
	return resp, nil
}

// Verify calls POST /auth/verify.
func (c *TaskClient) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	var raw struct {
		Valid  bool            `json:"valid"`
		UserID json.RawMessage `json:"user_id"`
		Email  string          `json:"email"`
	}
	err := c.doRequest(ctx, request{
		method:   http.MethodPost,
		endpoint: "/auth/verify",
		query:    map[string]string{"token": token},
	}, &raw)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Valid:  raw.Valid,
		UserID: strings.Trim(string(raw.UserID), `"`),
		Email:  raw.Email,
	}, nil
}

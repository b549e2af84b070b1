// Package services implements [TaskService], the client for the remote task and auth service.
//
// # Endpoints
//
// All paths are relative to the configured base URL (default [DefaultBaseURL]):
//   - POST /auth/login?email=&password= : returns {access_token, token_type, user}
//   - POST /auth/register : JSON {email, password, first_name?, last_name?}
//   - POST /auth/verify?token= : 2xx when the token is still accepted
//   - GET /tasks/, POST /tasks/ : list and create
//   - GET, PUT, DELETE /tasks/{id} : read, partial update, delete
//
// # Authentication
//
// Task endpoints read the session token through [Options.Token] on every call and attach it with an
// [oauth2.Transport] over a static token source. When no session exists the request goes out
// without credentials and the service answers 401.
//
// # Error Handling
//
// Any non-2xx response becomes an [*APIError] carrying the FastAPI "detail" message. It matches
// [shared.ErrAPIRequest] with errors.Is, and a 401 additionally matches [shared.ErrNotAuthenticated].
// Transport failures wrap [shared.ErrServiceUnavailable].
//
// Each request carries a fresh X-Request-ID header and is throttled by [Options.RequestsPerSecond].
package services

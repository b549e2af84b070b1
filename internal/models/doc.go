// Package models defines the data exchanged with the task service and held in client state.
//
// The package contains two groups of types:
//
// 1. Session types: identity and credentials
//   - [User] : identity record (id, email) owned by the auth provider
//   - [Claims] : payload decoded locally from the stored access token
//   - [LoginResponse], [RegisterRequest], [RegisterResponse] : auth endpoint bodies
//
// 2. Task types: the CRUD resource
//   - [Task] : canonical resource as returned by the service
//   - [TaskDraft] : create payload, title required
//   - [TaskPatch] : partial update, nil fields are not sent
//
// Tasks are owned by the service. Client code never edits a [Task] in place; it replaces
// its copy with the canonical one returned after each mutation.
package models

// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI routes between views based on the auth state:
//  1. [LoadingView] : The stored session is being restored
//  2. [LoginView] : No session; email/password form
//  3. [DashboardView] : Task list for the signed-in user
//  4. [FormView] : Create a task or edit the selected one
//  5. [ConfirmView] : Confirm deleting the selected task
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Auth state changes arrive from [auth.Provider.Subscribe]; task state lives in a [dashboard.Controller] and is re-read after
// every command completes.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui

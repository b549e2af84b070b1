// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/tdx/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand initializes local configuration and storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and local database",
		Action: r.Setup,
	}
}

// authCommand handles session operations
func authCommand(r *Runner) *cli.Command {
	credentials := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email (prompted when omitted)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password (prompted when omitted)",
				Sources: cli.EnvVars("TDX_PASSWORD"),
			},
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out, and inspect the current session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in and store the access token",
				Flags:  credentials(),
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored access token",
				Action: r.AuthLogout,
			},
			{
				Name:  "register",
				Usage: "Create a new account",
				Flags: append(credentials(),
					&cli.StringFlag{Name: "first-name", Usage: "First name"},
					&cli.StringFlag{Name: "last-name", Usage: "Last name"},
				),
				Action: r.AuthRegister,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "verify",
				Usage:  "Ask the service whether the stored token is still valid",
				Action: r.AuthVerify,
			},
		},
	}
}

// tasksCommand handles task operations
func tasksCommand(r *Runner) *cli.Command {
	idArg := func() []cli.Argument {
		return []cli.Argument{&cli.StringArg{Name: "id", UsageText: "task id"}}
	}

	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"t"},
		Usage:   "List and manage tasks",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List your tasks",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"},
				},
				Action: r.TasksList,
			},
			{
				Name:      "show",
				Usage:     "Show a single task",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.TasksShow,
			},
			{
				Name:      "add",
				Usage:     "Create a task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title", UsageText: "task title"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Task description"},
				},
				Action: r.TasksAdd,
			},
			{
				Name:      "update",
				Usage:     "Change a task's title or description",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "New title"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
				},
				Action: r.TasksUpdate,
			},
			{
				Name:      "done",
				Usage:     "Mark a task completed",
				Arguments: idArg(),
				Action:    r.TasksDone,
			},
			{
				Name:      "undone",
				Usage:     "Mark a task not completed",
				Arguments: idArg(),
				Action:    r.TasksUndone,
			},
			{
				Name:      "toggle",
				Usage:     "Flip a task's completion",
				Arguments: idArg(),
				Action:    r.TasksToggle,
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a task",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
				},
				Action: r.TasksRemove,
			},
			{
				Name:  "export",
				Usage: "Export tasks to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, md, txt, json)",
						Value:   string(formatter.FormatCSV),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path, or - for stdout (default: tasks.<format>)",
					},
				},
				Action: r.TasksExport,
			},
			{
				Name:      "import",
				Usage:     "Create tasks from a CSV file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file", UsageText: "CSV file with a title column"}},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "workers", Usage: "Concurrent workers (max 10)", Value: 4},
					&cli.FloatFlag{Name: "rate", Usage: "Requests per second", Value: 5},
				},
				Action: r.TasksImport,
			},
		},
	}
}

// tuiCommand launches the interactive dashboard
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive dashboard",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verify", Usage: "Confirm the stored session with the service on start"},
		},
		Action: r.TUI,
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"deskhand/internal/activity"
	"deskhand/internal/config"
	"deskhand/internal/db"
	"deskhand/internal/domain"
	"deskhand/internal/engine"
	"deskhand/internal/migrate"
	"deskhand/internal/repo"
	"deskhand/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "dh",
	Short: "Deskhand CLI",
	Long: `Deskhand is a personal task board with an activity feed.
- Workspace: the .deskhand directory holding the database; deskhand.yml holds auth and board settings.
- Tasks: cards on a board, grouped into backlog / todo / in_progress / done columns and ordered by position.
- Projects: clients or codebases that tasks can belong to, each with a URL slug.
- Activity log: an append-only feed of what the agents did, paginated by day.
- Routines: recurring jobs with an on/off switch.
- Serve: 'dh serve' exposes the same data over a JSON API for the web board.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DESKHAND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(routineCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(messageCmd())
	rootCmd.AddCommand(brainCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the workspace and a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Printf("Initialized workspace; config at %s, database at %s\n", path, db.Path(workspace))
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			return migrate.Migrate(conn)
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)

			authCfg := server.AuthConfig{
				APIToken:      cfg.Auth.APIToken,
				WebPassword:   cfg.Auth.WebPassword,
				SessionSecret: cfg.Auth.SessionSecret,
				SessionTTL:    time.Duration(cfg.SessionTTLHoursOrDefault()) * time.Hour,
			}
			if authCfg.WebPassword != "" && authCfg.SessionSecret == "" {
				// sessions from previous runs die with the process, which is
				// acceptable for an unconfigured secret
				authCfg.SessionSecret = uuid.NewString()
				fmt.Println("warning: auth.session_secret is empty; using a random secret for this run")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Deskhand API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskMoveCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var assignedTo, dueDate string
	var tags []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.AssignedTo = optionalString(assignedTo)
			opts.DueDate = optionalString(dueDate)
			opts.Tags = tags
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t, taskTable([]domain.Task{t}))
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "column (backlog, todo, in_progress, done)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (low, medium, high)")
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "assignee")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "tag (repeatable)")
	cmd.Flags().StringVar(&opts.Board, "board", "", "board name")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(tasks, taskTable(tasks))
			})
		},
	}
	cmd.Flags().StringVar(&f.Board, "board", "", "board filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.AssignedTo, "assigned-to", "", "assignee filter")
	cmd.Flags().Int64Var(&f.ProjectID, "project", 0, "project id filter")
	return cmd
}

func taskShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Repo.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var id int64
	var title, description, status, priority, assignedTo, dueDate, board string
	var tags []string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update task fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := engine.TaskPatch{}
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("status") {
				patch.Status = &status
			}
			if cmd.Flags().Changed("priority") {
				patch.Priority = &priority
			}
			if cmd.Flags().Changed("assigned-to") {
				patch.AssignedTo = optionalString(assignedTo)
				patch.AssignedToSet = true
			}
			if cmd.Flags().Changed("due-date") {
				patch.DueDate = optionalString(dueDate)
				patch.DueDateSet = true
			}
			if cmd.Flags().Changed("tag") {
				patch.Tags = tags
				patch.TagsSet = true
			}
			if cmd.Flags().Changed("board") {
				patch.Board = &board
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTask(ctx, id, patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(t, taskTable([]domain.Task{t}))
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "column")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "assignee (empty clears)")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (empty clears)")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "tag (repeatable, replaces all)")
	cmd.Flags().StringVar(&board, "board", "", "board name")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	var id int64
	var status string
	var position int
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a task to a column and position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				missing, err := e.ReorderTasks(ctx, []engine.TaskPlacement{{ID: id, Status: status, Position: position}})
				if err != nil {
					return err
				}
				if len(missing) > 0 {
					return fmt.Errorf("task %d not found", id)
				}
				t, err := e.Repo.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t, taskTable([]domain.Task{t}))
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	cmd.Flags().StringVar(&status, "status", "", "target column")
	cmd.Flags().IntVar(&position, "position", 0, "target position")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func boardCmd() *cobra.Command {
	var board string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the board grouped by column",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				columns, err := e.BoardSnapshot(ctx, board)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(columns)
				}
				for _, status := range domain.TaskStatuses {
					fmt.Printf("%s (%d)\n", status, len(columns[status]))
					for _, t := range columns[status] {
						assignee := ""
						if t.AssignedTo != nil {
							assignee = " @" + *t.AssignedTo
						}
						fmt.Printf("  %3d. %s%s\n", t.Position, t.Title, assignee)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&board, "board", "", "board name")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectDeleteCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProjects(ctx)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Slug", "Status", "Position"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Slug, p.Status, p.Position})
				}
				return printJSONOrTable(items, tw)
			})
		},
	}
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (active, paused, completed, archived)")
	cmd.Flags().StringVar(&opts.Color, "color", "", "hex color")
	cmd.Flags().StringVar(&opts.URL, "url", "", "production URL")
	cmd.Flags().StringVar(&opts.GithubURL, "github-url", "", "repository URL")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show project with its tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, tasks, err := e.ProjectWithTasks(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"project": p, "tasks": tasks})
				}
				fmt.Printf("%s (%s) [%s]\n", p.Name, p.Slug, p.Status)
				if p.Description != "" {
					fmt.Println(p.Description)
				}
				fmt.Printf("Tasks: %d\n", len(tasks))
				for _, t := range tasks {
					fmt.Printf("  #%d %s [%s]\n", t.ID, t.Title, t.Status)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "project id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete project (tasks are detached, not deleted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteProject(ctx, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "project id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func routineCmd() *cobra.Command {
	rt := &cobra.Command{
		Use:   "routine",
		Short: "Manage scheduled routines",
	}
	rt.AddCommand(routineListCmd())
	rt.AddCommand(routineToggleCmd())
	rt.AddCommand(routineSeedCmd())
	return rt
}

func routineListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List routines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				routines, err := e.ListRoutines(ctx, category)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Title", "Type", "Category", "Assignee", "Enabled"})
				for _, r := range routines {
					tw.AppendRow(table.Row{r.ID, r.ScheduleTime, r.Title, r.ScheduleType, r.Category, r.AssignedTo, r.Enabled})
				}
				return printJSONOrTable(routines, tw)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	return cmd
}

func routineToggleCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Flip a routine's enabled switch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rt, err := e.ToggleRoutine(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("%s: enabled=%v\n", rt.Title, rt.Enabled)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "routine id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func routineSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import routines from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := e.SeedRoutines(ctx, data)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d routines\n", len(created))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed file path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Activity feed",
	}
	log.AddCommand(logTailCmd())
	log.AddCommand(logAddCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n, page int
	var date, entryType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				result, err := e.QueryActivity(ctx, activity.QueryFilters{Date: date, Type: entryType}, page, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(result)
				}
				for _, entry := range result.Items {
					fmt.Printf("%s  [%s]  %s\n", entry.CreatedAt, entry.Type, entry.Title)
				}
				fmt.Printf("page %d/%d (%d entries)\n", result.CurrentPage, result.LastPage, result.Total)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "entries per page")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVar(&date, "date", "", "UTC day filter (YYYY-MM-DD)")
	cmd.Flags().StringVar(&entryType, "type", "", "type filter")
	return cmd
}

func logAddCmd() *cobra.Command {
	var opts engine.ActivityOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append an activity entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.AppendActivity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(entry)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Type, "type", "", "entry type")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "acting agent")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func messageCmd() *cobra.Command {
	msg := &cobra.Command{
		Use:   "msg",
		Short: "Agent messages",
	}
	msg.AddCommand(messageListCmd())
	msg.AddCommand(messageSendCmd())
	msg.AddCommand(messageRespondCmd())
	return msg
}

func messageListCmd() *cobra.Command {
	var f repo.MessageFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				messages, err := e.ListMessages(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(messages)
				}
				for _, m := range messages {
					answered := " "
					if m.Response != nil {
						answered = "✓"
					}
					fmt.Printf("#%d %s %s -> %s: %s\n", m.ID, answered, m.FromAgent, m.ToAgent, m.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ToAgent, "to", "", "recipient filter")
	cmd.Flags().StringVar(&f.FromAgent, "from", "", "sender filter")
	cmd.Flags().BoolVar(&f.Unanswered, "unanswered", false, "only messages without a response")
	return cmd
}

func messageSendCmd() *cobra.Command {
	var opts engine.MessageCreateOptions
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateMessage(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
	cmd.Flags().StringVar(&opts.FromAgent, "from", "", "sender")
	cmd.Flags().StringVar(&opts.ToAgent, "to", "", "recipient")
	cmd.Flags().StringVar(&opts.Message, "message", "", "message text")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func messageRespondCmd() *cobra.Command {
	var id int64
	var response string
	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Respond to a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.RespondMessage(ctx, id, response)
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "message id")
	cmd.Flags().StringVar(&response, "response", "", "response text")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("response")
	return cmd
}

func brainCmd() *cobra.Command {
	brain := &cobra.Command{
		Use:   "brain",
		Short: "Shared knowledge entries",
	}
	brain.AddCommand(brainListCmd())
	brain.AddCommand(brainAddCmd())
	brain.AddCommand(brainPinCmd())
	brain.AddCommand(brainArchiveCmd())
	return brain
}

func brainListCmd() *cobra.Command {
	var f repo.BrainFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List brain entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := e.ListBrainEntries(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				for _, b := range entries {
					pin := " "
					if b.Pinned {
						pin = "*"
					}
					fmt.Printf("#%d %s %s\n", b.ID, pin, b.Title)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Category, "category", "", "category filter")
	cmd.Flags().BoolVar(&f.PinnedOnly, "pinned", false, "only pinned entries")
	cmd.Flags().BoolVar(&f.IncludeArchived, "include-archived", false, "include archived entries")
	return cmd
}

func brainAddCmd() *cobra.Command {
	var opts engine.BrainCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a brain entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.CreateBrainEntry(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Content, "content", "", "content")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category")
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "authoring agent")
	cmd.Flags().BoolVar(&opts.Pinned, "pin", false, "pin the entry")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func brainPinCmd() *cobra.Command {
	var id int64
	var off bool
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Pin or unpin an entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.PinBrainEntry(ctx, id, !off)
				if err != nil {
					return err
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "entry id")
	cmd.Flags().BoolVar(&off, "off", false, "unpin instead")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func brainArchiveCmd() *cobra.Command {
	var id int64
	var off bool
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive or restore an entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.ArchiveBrainEntry(ctx, id, !off)
				if err != nil {
					return err
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "entry id")
	cmd.Flags().BoolVar(&off, "off", false, "restore instead")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func taskTable(tasks []domain.Task) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignee", "Board", "Pos"})
	for _, t := range tasks {
		assignee := ""
		if t.AssignedTo != nil {
			assignee = *t.AssignedTo
		}
		tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, assignee, t.Board, t.Position})
	}
	return tw
}

func printJSONOrTable(v any, tw table.Writer) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw.Render()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

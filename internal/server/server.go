package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"deskhand/internal/activity"
	"deskhand/internal/domain"
	"deskhand/internal/engine"
	"deskhand/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError is the failure envelope. Validation failures carry the
// per-field map; everything else is just a message.
type apiError struct {
	status  int
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

// New returns an HTTP handler exposing the Deskhand API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the success/message envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema-level request validation is a malformed request,
			// distinct from domain validation.
			status = http.StatusBadRequest
		}
		return newAPIError(status, msg, nil)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine))
	hcfg := huma.DefaultConfig("Deskhand API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerAuth(group, cfg.Engine, cfg.Auth)
	registerTasks(group, cfg.Engine)
	registerBoard(group, cfg.Engine)
	registerProjects(group, cfg.Engine)
	registerActivity(group, cfg.Engine)
	registerRoutines(group, cfg.Engine)
	registerMessages(group, cfg.Engine)
	registerBrain(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, message string, fields map[string]string) huma.StatusError {
	return &apiError{
		status:  status,
		Message: message,
		Errors:  fields,
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation failed", ve.Fields)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not found", nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal error", nil)
}

func bodyBytes(ctx context.Context) []byte {
	b, _ := ctx.Value(bodyBytesKey{}).([]byte)
	return b
}

// bodyKeys reports which top-level keys the client actually sent, so a
// patch can tell an absent field from an explicit null.
func bodyKeys(ctx context.Context) map[string]json.RawMessage {
	keys := map[string]json.RawMessage{}
	_ = json.Unmarshal(bodyBytes(ctx), &keys)
	return keys
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:   "http",
		Scheme: "bearer",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	open := map[string]bool{
		"/" + strings.TrimPrefix(path.Join(basePath, "health"), "/"):     true,
		"/" + strings.TrimPrefix(path.Join(basePath, "auth/login"), "/"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Deskhand API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		Board      string `query:"board"`
		Status     string `query:"status"`
		Priority   string `query:"priority"`
		AssignedTo string `query:"assigned_to"`
		ProjectID  int64  `query:"project_id"`
	}) (*struct {
		Body envelope[[]domain.Task]
	}, error) {
		filters := repo.TaskFilters{
			Board:      input.Board,
			Status:     input.Status,
			Priority:   input.Priority,
			AssignedTo: input.AssignedTo,
		}
		if input.ProjectID != 0 {
			filters.ProjectID = input.ProjectID
		}
		tasks, err := e.ListTasks(ctx, filters)
		if err != nil {
			return nil, handleError(err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return &struct {
			Body envelope[[]domain.Task]
		}{Body: ok(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body createdEnvelope[domain.Task]
	}, error) {
		task, err := e.CreateTask(ctx, input.Body.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body createdEnvelope[domain.Task]
		}{Body: created("Task created successfully", task)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[domain.Task]
	}, error) {
		task, err := e.Repo.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.Task]
		}{Body: ok(task)}, nil
	})

	// Registered before /tasks/{id} patterns would matter in a plain mux;
	// huma routes exact segments first so /tasks/positions is safe.
	huma.Register(api, huma.Operation{
		OperationID: "update-task-positions",
		Method:      http.MethodPost,
		Path:        "/tasks/positions",
		Summary:     "Apply a board reorder batch",
		Errors:      []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body UpdateTaskPositionsRequest `json:"body"`
	}) (*struct {
		Body envelope[ReorderResponse]
	}, error) {
		missing, err := e.ReorderTasks(ctx, taskPlacements(input.Body.Tasks))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[ReorderResponse]
		}{Body: ok(ReorderResponse{
			Updated: len(input.Body.Tasks) - len(missing),
			Missing: missing,
		})}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body envelope[domain.Task]
	}, error) {
		keys := bodyKeys(ctx)
		_, assignedSet := keys["assigned_to"]
		_, dueSet := keys["due_date"]
		_, tagsSet := keys["tags"]
		_, projectSet := keys["project_id"]
		task, err := e.UpdateTask(ctx, input.ID, engine.TaskPatch{
			Title:         input.Body.Title,
			Description:   input.Body.Description,
			Status:        input.Body.Status,
			Priority:      input.Body.Priority,
			AssignedTo:    input.Body.AssignedTo,
			AssignedToSet: assignedSet,
			DueDate:       input.Body.DueDate,
			DueDateSet:    dueSet,
			Tags:          input.Body.Tags,
			TagsSet:       tagsSet,
			Position:      input.Body.Position,
			Board:         input.Body.Board,
			ProjectID:     input.Body.ProjectID,
			ProjectIDSet:  projectSet,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.Task]
		}{Body: ok(task)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[map[string]string]
	}, error) {
		if err := e.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[map[string]string]
		}{Body: ok(map[string]string{"status": "deleted"})}, nil
	})
}

func registerBoard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Board snapshot grouped by status",
	}, func(ctx context.Context, input *struct {
		Board string `query:"board"`
	}) (*struct {
		Body envelope[map[string][]domain.Task]
	}, error) {
		columns, err := e.BoardSnapshot(ctx, input.Board)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[map[string][]domain.Task]
		}{Body: ok(columns)}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body envelope[[]domain.Project]
	}, error) {
		projects, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		return &struct {
			Body envelope[[]domain.Project]
		}{Body: ok(projects)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body createdEnvelope[domain.Project]
	}, error) {
		p, err := e.CreateProject(ctx, input.Body.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body createdEnvelope[domain.Project]
		}{Body: created("Project created successfully", p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project-positions",
		Method:      http.MethodPost,
		Path:        "/projects/positions",
		Summary:     "Apply a project reorder batch",
	}, func(ctx context.Context, input *struct {
		Body UpdateProjectPositionsRequest `json:"body"`
	}) (*struct {
		Body envelope[ReorderResponse]
	}, error) {
		missing, err := e.ReorderProjects(ctx, projectPlacements(input.Body.Projects))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[ReorderResponse]
		}{Body: ok(ReorderResponse{
			Updated: len(input.Body.Projects) - len(missing),
			Missing: missing,
		})}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project with its tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[ProjectDetailResponse]
	}, error) {
		p, tasks, err := e.ProjectWithTasks(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return &struct {
			Body envelope[ProjectDetailResponse]
		}{Body: ok(ProjectDetailResponse{Project: p, Tasks: tasks})}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/projects/{id}",
		Summary:     "Update project",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body envelope[domain.Project]
	}, error) {
		keys := bodyKeys(ctx)
		_, techSet := keys["tech_stack"]
		_, apiSet := keys["api_details"]
		_, credSet := keys["credentials"]
		_, contactsSet := keys["contacts"]
		p, err := e.UpdateProject(ctx, input.ID, engine.ProjectPatch{
			Name:           input.Body.Name,
			Description:    input.Body.Description,
			Status:         input.Body.Status,
			Icon:           input.Body.Icon,
			Color:          input.Body.Color,
			URL:            input.Body.URL,
			StagingURL:     input.Body.StagingURL,
			GithubURL:      input.Body.GithubURL,
			DocsURL:        input.Body.DocsURL,
			TechStack:      input.Body.TechStack,
			TechStackSet:   techSet,
			APIDetails:     input.Body.APIDetails,
			APIDetailsSet:  apiSet,
			Credentials:    input.Body.Credentials,
			CredentialsSet: credSet,
			Contacts:       input.Body.Contacts,
			ContactsSet:    contactsSet,
			Notes:          input.Body.Notes,
			QuickReference: input.Body.QuickReference,
			Position:       input.Body.Position,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.Project]
		}{Body: ok(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}",
		Summary:     "Delete project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[map[string]string]
	}, error) {
		if err := e.DeleteProject(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[map[string]string]
		}{Body: ok(map[string]string{"status": "deleted"})}, nil
	})
}

func registerActivity(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity-logs",
		Summary:     "Paginated activity feed",
	}, func(ctx context.Context, input *struct {
		Date    string `query:"date"`
		Type    string `query:"type"`
		Page    int    `query:"page"`
		PerPage int    `query:"per_page"`
	}) (*struct {
		Body envelope[ActivityPageResponse]
	}, error) {
		page, err := e.QueryActivity(ctx, activity.QueryFilters{Date: input.Date, Type: input.Type}, input.Page, input.PerPage)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[ActivityPageResponse]
		}{Body: ok(ActivityPageResponse{
			Items: page.Items,
			Meta: PaginationMeta{
				CurrentPage: page.CurrentPage,
				LastPage:    page.LastPage,
				Total:       page.Total,
			},
		})}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-activity",
		Method:        http.MethodPost,
		Path:          "/activity-logs",
		Summary:       "Append an activity entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateActivityRequest `json:"body"`
	}) (*struct {
		Body createdEnvelope[domain.ActivityLog]
	}, error) {
		entry, err := e.AppendActivity(ctx, engine.ActivityOptions{
			Type:        input.Body.Type,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Agent:       input.Body.Agent,
			Metadata:    input.Body.Metadata,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body createdEnvelope[domain.ActivityLog]
		}{Body: created("Activity logged successfully", entry)}, nil
	})
}

func registerRoutines(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-routines",
		Method:      http.MethodGet,
		Path:        "/scheduled-routines",
		Summary:     "List scheduled routines",
	}, func(ctx context.Context, input *struct {
		Category string `query:"category"`
	}) (*struct {
		Body envelope[[]domain.ScheduledRoutine]
	}, error) {
		routines, err := e.ListRoutines(ctx, input.Category)
		if err != nil {
			return nil, handleError(err)
		}
		if routines == nil {
			routines = []domain.ScheduledRoutine{}
		}
		return &struct {
			Body envelope[[]domain.ScheduledRoutine]
		}{Body: ok(routines)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-routine",
		Method:        http.MethodPost,
		Path:          "/scheduled-routines",
		Summary:       "Create routine",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateRoutineRequest `json:"body"`
	}) (*struct {
		Body createdEnvelope[domain.ScheduledRoutine]
	}, error) {
		rt, err := e.CreateRoutine(ctx, input.Body.options())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body createdEnvelope[domain.ScheduledRoutine]
		}{Body: created("Routine created successfully", rt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-routine",
		Method:      http.MethodPut,
		Path:        "/scheduled-routines/{id}",
		Summary:     "Update routine",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body UpdateRoutineRequest `json:"body"`
	}) (*struct {
		Body envelope[domain.ScheduledRoutine]
	}, error) {
		rt, err := e.UpdateRoutine(ctx, input.ID, engine.RoutinePatch{
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			ScheduleTime: input.Body.ScheduleTime,
			ScheduleType: input.Body.ScheduleType,
			Frequency:    input.Body.Frequency,
			AssignedTo:   input.Body.AssignedTo,
			Enabled:      input.Body.Enabled,
			Category:     input.Body.Category,
			Position:     input.Body.Position,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.ScheduledRoutine]
		}{Body: ok(rt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-routine",
		Method:      http.MethodPatch,
		Path:        "/scheduled-routines/{id}/toggle",
		Summary:     "Flip a routine's enabled switch",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[domain.ScheduledRoutine]
	}, error) {
		rt, err := e.ToggleRoutine(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.ScheduledRoutine]
		}{Body: ok(rt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-routine",
		Method:      http.MethodDelete,
		Path:        "/scheduled-routines/{id}",
		Summary:     "Delete routine",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[map[string]string]
	}, error) {
		if err := e.DeleteRoutine(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[map[string]string]
		}{Body: ok(map[string]string{"status": "deleted"})}, nil
	})
}

func registerMessages(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-messages",
		Method:      http.MethodGet,
		Path:        "/agent-messages",
		Summary:     "List agent messages",
	}, func(ctx context.Context, input *struct {
		To         string `query:"to"`
		From       string `query:"from"`
		Unanswered bool   `query:"unanswered"`
	}) (*struct {
		Body envelope[[]domain.AgentMessage]
	}, error) {
		messages, err := e.ListMessages(ctx, repo.MessageFilters{
			ToAgent:    input.To,
			FromAgent:  input.From,
			Unanswered: input.Unanswered,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if messages == nil {
			messages = []domain.AgentMessage{}
		}
		return &struct {
			Body envelope[[]domain.AgentMessage]
		}{Body: ok(messages)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-message",
		Method:        http.MethodPost,
		Path:          "/agent-messages",
		Summary:       "Send an agent message",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateMessageRequest `json:"body"`
	}) (*struct {
		Body createdEnvelope[domain.AgentMessage]
	}, error) {
		m, err := e.CreateMessage(ctx, engine.MessageCreateOptions{
			FromAgent: input.Body.FromAgent,
			ToAgent:   input.Body.ToAgent,
			Message:   input.Body.Message,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body createdEnvelope[domain.AgentMessage]
		}{Body: created("Message sent successfully", m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "respond-message",
		Method:      http.MethodPut,
		Path:        "/agent-messages/{id}/response",
		Summary:     "Respond to a message",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body RespondMessageRequest `json:"body"`
	}) (*struct {
		Body envelope[domain.AgentMessage]
	}, error) {
		m, err := e.RespondMessage(ctx, input.ID, input.Body.Response)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.AgentMessage]
		}{Body: ok(m)}, nil
	})
}

func registerBrain(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-brain-entries",
		Method:      http.MethodGet,
		Path:        "/brain-entries",
		Summary:     "List brain entries",
	}, func(ctx context.Context, input *struct {
		Category        string `query:"category"`
		Pinned          bool   `query:"pinned"`
		IncludeArchived bool   `query:"include_archived"`
	}) (*struct {
		Body envelope[[]domain.BrainEntry]
	}, error) {
		entries, err := e.ListBrainEntries(ctx, repo.BrainFilters{
			Category:        input.Category,
			PinnedOnly:      input.Pinned,
			IncludeArchived: input.IncludeArchived,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if entries == nil {
			entries = []domain.BrainEntry{}
		}
		return &struct {
			Body envelope[[]domain.BrainEntry]
		}{Body: ok(entries)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-brain-entry",
		Method:        http.MethodPost,
		Path:          "/brain-entries",
		Summary:       "Create brain entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CreateBrainEntryRequest `json:"body"`
	}) (*struct {
		Body createdEnvelope[domain.BrainEntry]
	}, error) {
		b, err := e.CreateBrainEntry(ctx, engine.BrainCreateOptions{
			Title:    input.Body.Title,
			Content:  input.Body.Content,
			Category: input.Body.Category,
			Tags:     input.Body.Tags,
			Agent:    input.Body.Agent,
			Source:   input.Body.Source,
			Pinned:   input.Body.Pinned,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body createdEnvelope[domain.BrainEntry]
		}{Body: created("Brain entry created successfully", b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-brain-entry",
		Method:      http.MethodGet,
		Path:        "/brain-entries/{id}",
		Summary:     "Get brain entry",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[domain.BrainEntry]
	}, error) {
		b, err := e.Repo.GetBrainEntry(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.BrainEntry]
		}{Body: ok(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-brain-entry",
		Method:      http.MethodPut,
		Path:        "/brain-entries/{id}",
		Summary:     "Update brain entry",
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   int64                   `path:"id"`
		Body UpdateBrainEntryRequest `json:"body"`
	}) (*struct {
		Body envelope[domain.BrainEntry]
	}, error) {
		keys := bodyKeys(ctx)
		_, tagsSet := keys["tags"]
		b, err := e.UpdateBrainEntry(ctx, input.ID, engine.BrainPatch{
			Title:    input.Body.Title,
			Content:  input.Body.Content,
			Category: input.Body.Category,
			Tags:     input.Body.Tags,
			TagsSet:  tagsSet,
			Agent:    input.Body.Agent,
			Source:   input.Body.Source,
			Pinned:   input.Body.Pinned,
			Archived: input.Body.Archived,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.BrainEntry]
		}{Body: ok(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pin-brain-entry",
		Method:      http.MethodPatch,
		Path:        "/brain-entries/{id}/pin",
		Summary:     "Toggle pin on a brain entry",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[domain.BrainEntry]
	}, error) {
		b, err := e.Repo.GetBrainEntry(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		b, err = e.PinBrainEntry(ctx, input.ID, !b.Pinned)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.BrainEntry]
		}{Body: ok(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-brain-entry",
		Method:      http.MethodPatch,
		Path:        "/brain-entries/{id}/archive",
		Summary:     "Toggle archive on a brain entry",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[domain.BrainEntry]
	}, error) {
		b, err := e.Repo.GetBrainEntry(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		b, err = e.ArchiveBrainEntry(ctx, input.ID, !b.Archived)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[domain.BrainEntry]
		}{Body: ok(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-brain-entry",
		Method:      http.MethodDelete,
		Path:        "/brain-entries/{id}",
		Summary:     "Delete brain entry",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body envelope[map[string]string]
	}, error) {
		if err := e.DeleteBrainEntry(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body envelope[map[string]string]
		}{Body: ok(map[string]string{"status": "deleted"})}, nil
	})
}

package domain

// Task statuses are the four board columns. There is no transition graph:
// a card can be dragged from any column to any other.
const (
	StatusBacklog    = "backlog"
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

var TaskStatuses = []string{StatusBacklog, StatusTodo, StatusInProgress, StatusDone}

var TaskPriorities = []string{"low", "medium", "high"}

var ActivityTypes = []string{"email", "sms", "order_fix", "analysis", "integration", "other"}

var RoutineScheduleTypes = []string{"daily", "hourly", "interval", "manual"}

var RoutineCategories = []string{"email", "sms", "orders", "analysis", "monitoring", "other"}

var ProjectStatuses = []string{"active", "paused", "completed", "archived"}

type Task struct {
	ID          int64    `json:"id"`
	ProjectID   *int64   `json:"project_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status" enum:"backlog,todo,in_progress,done"`
	Priority    string   `json:"priority" enum:"low,medium,high"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`
	DueDate     *string  `json:"due_date,omitempty" format:"date"`
	Tags        []string `json:"tags,omitempty"`
	Position    int      `json:"position"`
	Board       string   `json:"board"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
	DeletedAt   *string  `json:"deleted_at,omitempty" format:"date-time"`
}

type Project struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Slug           string         `json:"slug"`
	Description    string         `json:"description,omitempty"`
	Status         string         `json:"status" enum:"active,paused,completed,archived"`
	Icon           string         `json:"icon,omitempty"`
	Color          string         `json:"color"`
	URL            string         `json:"url,omitempty"`
	StagingURL     string         `json:"staging_url,omitempty"`
	GithubURL      string         `json:"github_url,omitempty"`
	DocsURL        string         `json:"docs_url,omitempty"`
	TechStack      []string       `json:"tech_stack,omitempty"`
	APIDetails     map[string]any `json:"api_details,omitempty"`
	Credentials    map[string]any `json:"credentials,omitempty"`
	Contacts       []any          `json:"contacts,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	QuickReference string         `json:"quick_reference,omitempty"`
	Position       int            `json:"position"`
	CreatedAt      string         `json:"created_at" format:"date-time"`
	UpdatedAt      string         `json:"updated_at" format:"date-time"`
}

type ActivityLog struct {
	ID          int64          `json:"id"`
	Type        string         `json:"type" enum:"email,sms,order_fix,analysis,integration,other"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Agent       string         `json:"agent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at" format:"date-time"`
}

type ScheduledRoutine struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ScheduleTime string `json:"schedule_time"`
	ScheduleType string `json:"schedule_type" enum:"daily,hourly,interval,manual"`
	Frequency    string `json:"frequency,omitempty"`
	AssignedTo   string `json:"assigned_to"`
	Enabled      bool   `json:"enabled"`
	Category     string `json:"category" enum:"email,sms,orders,analysis,monitoring,other"`
	Position     int    `json:"position"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

type AgentMessage struct {
	ID        int64   `json:"id"`
	FromAgent string  `json:"from_agent"`
	ToAgent   string  `json:"to_agent"`
	Message   string  `json:"message"`
	Response  *string `json:"response,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type BrainEntry struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Agent     string   `json:"agent,omitempty"`
	Source    string   `json:"source,omitempty"`
	Pinned    bool     `json:"pinned"`
	Archived  bool     `json:"archived"`
	CreatedAt string   `json:"created_at" format:"date-time"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

// Session is a web login session. The cookie carries a signed token whose
// jti is the session id; the row is the source of truth for expiry.
type Session struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at" format:"date-time"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"deskhand/internal/activity"
	"deskhand/internal/config"
	"deskhand/internal/db"
	"deskhand/internal/domain"
	"deskhand/internal/engine"
	"deskhand/internal/migrate"
	"deskhand/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	frozen := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	eng.Now = frozen
	eng.Activity.Now = frozen
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func mustCreateTask(t *testing.T, env testEnv, opts engine.TaskCreateOptions) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, opts)
	if err != nil {
		t.Fatalf("create task %q: %v", opts.Title, err)
	}
	return task
}

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "Ship invoices"})
	if task.Board != "tasks" {
		t.Errorf("board = %q, want tasks", task.Board)
	}
	if task.Status != "backlog" {
		t.Errorf("status = %q, want backlog", task.Status)
	}
	if task.Priority != "medium" {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
	if task.Position != 0 {
		t.Errorf("position = %d, want 0", task.Position)
	}
}

func TestCreateTaskPositionPerColumn(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "a"})
	b := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "b"})
	if a.Position != 0 || b.Position != 1 {
		t.Fatalf("same-column positions = %d, %d, want 0, 1", a.Position, b.Position)
	}
	// a different (board, status) partition starts its own count
	c := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "c", Status: "todo"})
	if c.Position != 0 {
		t.Errorf("other-column position = %d, want 0", c.Position)
	}
	d := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "d", Board: "ops"})
	if d.Position != 0 {
		t.Errorf("other-board position = %d, want 0", d.Position)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:      "",
		Status:     "bogus",
		AssignedTo: ptr("nobody"),
	})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	for _, field := range []string{"title", "status", "assigned_to"} {
		if ve.Fields[field] == "" {
			t.Errorf("missing %s error in %v", field, ve.Fields)
		}
	}
}

func TestSoftDeleteHidesTask(t *testing.T) {
	env := newTestEnv(t)
	keep := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "keep"})
	gone := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "gone"})

	if err := env.Engine.DeleteTask(env.Ctx, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, repo.TaskFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != keep.ID {
		t.Fatalf("list after delete = %v, want only %d", tasks, keep.ID)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, gone.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("get deleted task err = %v, want ErrNotFound", err)
	}
	// the freed position is reused since max only counts live rows
	next := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "next"})
	if next.Position != 1 {
		t.Errorf("position after delete = %d, want 1", next.Position)
	}
}

func TestUpdateTaskPatchSemantics(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, engine.TaskCreateOptions{
		Title:      "patch me",
		AssignedTo: ptr("sandi"),
		Tags:       []string{"billing"},
	})

	got, err := env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskPatch{Status: ptr("done")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != "done" {
		t.Errorf("status = %q, want done", got.Status)
	}
	if got.AssignedTo == nil || *got.AssignedTo != "sandi" {
		t.Errorf("assigned_to changed by unrelated patch: %v", got.AssignedTo)
	}

	// explicit null via the Set flag
	got, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskPatch{AssignedToSet: true})
	if err != nil {
		t.Fatalf("clear assigned_to: %v", err)
	}
	if got.AssignedTo != nil {
		t.Errorf("assigned_to = %v, want nil", *got.AssignedTo)
	}

	if _, err := env.Engine.UpdateTask(env.Ctx, 9999, engine.TaskPatch{Status: ptr("done")}); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("update unknown id err = %v, want ErrNotFound", err)
	}
}

func TestReorderTasksBatch(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "a"})
	b := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "b"})
	c := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "c"})

	missing, err := env.Engine.ReorderTasks(env.Ctx, []engine.TaskPlacement{
		{ID: c.ID, Status: "todo", Position: 0},
		{ID: a.ID, Status: "backlog", Position: 1},
		{ID: b.ID, Status: "backlog", Position: 0},
		{ID: 4242, Status: "todo", Position: 1},
	})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if len(missing) != 1 || missing[0] != 4242 {
		t.Fatalf("missing = %v, want [4242]", missing)
	}

	backlog, err := env.Engine.ListTasks(env.Ctx, repo.TaskFilters{Status: "backlog"})
	if err != nil {
		t.Fatalf("list backlog: %v", err)
	}
	if len(backlog) != 2 || backlog[0].ID != b.ID || backlog[1].ID != a.ID {
		t.Fatalf("backlog order = %v, want [b a]", ids(backlog))
	}
	todo, err := env.Engine.ListTasks(env.Ctx, repo.TaskFilters{Status: "todo"})
	if err != nil {
		t.Fatalf("list todo: %v", err)
	}
	if len(todo) != 1 || todo[0].ID != c.ID {
		t.Fatalf("todo = %v, want [c]", ids(todo))
	}
}

func TestReorderTasksRejectsBadStatus(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "a"})
	_, err := env.Engine.ReorderTasks(env.Ctx, []engine.TaskPlacement{{ID: task.ID, Status: "shipped"}})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestBoardSnapshotAlwaysFourColumns(t *testing.T) {
	env := newTestEnv(t)
	mustCreateTask(t, env, engine.TaskCreateOptions{Title: "only one", Status: "in_progress"})

	columns, err := env.Engine.BoardSnapshot(env.Ctx, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(columns) != len(domain.TaskStatuses) {
		t.Fatalf("columns = %d, want %d", len(columns), len(domain.TaskStatuses))
	}
	for _, status := range domain.TaskStatuses {
		if _, ok := columns[status]; !ok {
			t.Errorf("missing column %q", status)
		}
	}
	if len(columns["in_progress"]) != 1 {
		t.Errorf("in_progress column = %v", columns["in_progress"])
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Cool API!!":    "my-cool-api",
		"  spaced  out  ":  "spaced-out",
		"Déjà Vu":          "d-j-vu",
		"already-a-slug":   "already-a-slug",
		"!!!":              "",
		"Shop 2.0 Rewrite": "shop-2-0-rewrite",
	}
	for in, want := range cases {
		if got := engine.Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProjectSlugCollision(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Shop"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Shop"})
	if err != nil {
		t.Fatalf("create duplicate name: %v", err)
	}
	if first.Slug != "shop" || second.Slug != "shop-2" {
		t.Errorf("slugs = %q, %q, want shop, shop-2", first.Slug, second.Slug)
	}
	if first.Color != "#13b6ec" || first.Status != "active" {
		t.Errorf("defaults = %q %q", first.Color, first.Status)
	}
}

func TestDeleteProjectDetachesTasks(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Shop"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	task := mustCreateTask(t, env, engine.TaskCreateOptions{Title: "attached", ProjectID: &p.ID})

	if err := env.Engine.DeleteProject(env.Ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	got, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.ProjectID != nil {
		t.Errorf("task project_id = %v, want nil", *got.ProjectID)
	}
}

func TestActivityValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.AppendActivity(env.Ctx, engine.ActivityOptions{Type: "party", Title: "x"})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError for bad type, got %v", err)
	}
	_, err = env.Engine.AppendActivity(env.Ctx, engine.ActivityOptions{Type: "email", Title: "  "})
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError for blank title, got %v", err)
	}
}

func TestActivityPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 7; i++ {
		_, err := env.Engine.AppendActivity(env.Ctx, engine.ActivityOptions{
			Type:  "email",
			Title: fmt.Sprintf("entry %d", i),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	page, err := env.Engine.QueryActivity(env.Ctx, activity.QueryFilters{}, 1, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Total != 7 || page.LastPage != 3 || page.CurrentPage != 1 || len(page.Items) != 3 {
		t.Fatalf("page meta = %+v", page)
	}
	// newest first; same timestamp falls back to id
	if page.Items[0].Title != "entry 6" {
		t.Errorf("first item = %q, want entry 6", page.Items[0].Title)
	}

	last, err := env.Engine.QueryActivity(env.Ctx, activity.QueryFilters{}, 3, 3)
	if err != nil {
		t.Fatalf("query last: %v", err)
	}
	if len(last.Items) != 1 || last.Items[0].Title != "entry 0" {
		t.Fatalf("last page = %v", last.Items)
	}

	empty, err := env.Engine.QueryActivity(env.Ctx, activity.QueryFilters{}, 9, 3)
	if err != nil {
		t.Fatalf("query past end: %v", err)
	}
	if len(empty.Items) != 0 || empty.LastPage != 3 {
		t.Fatalf("past-end page = %+v", empty)
	}
}

func TestActivityDateFilter(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AppendActivity(env.Ctx, engine.ActivityOptions{Type: "sms", Title: "today"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	match, err := env.Engine.QueryActivity(env.Ctx, activity.QueryFilters{Date: "2024-05-01"}, 1, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(match.Items) != 1 {
		t.Fatalf("items for entry day = %v", match.Items)
	}
	miss, err := env.Engine.QueryActivity(env.Ctx, activity.QueryFilters{Date: "2024-05-02"}, 1, 0)
	if err != nil {
		t.Fatalf("query other day: %v", err)
	}
	if len(miss.Items) != 0 {
		t.Fatalf("items for other day = %v", miss.Items)
	}
}

func TestRoutineToggle(t *testing.T) {
	env := newTestEnv(t)
	rt, err := env.Engine.CreateRoutine(env.Ctx, engine.RoutineCreateOptions{
		Title:        "Morning email sweep",
		ScheduleTime: "09:00",
		ScheduleType: "daily",
		Category:     "email",
		AssignedTo:   "sandi",
	})
	if err != nil {
		t.Fatalf("create routine: %v", err)
	}
	if !rt.Enabled {
		t.Fatal("new routine should be enabled")
	}

	off, err := env.Engine.ToggleRoutine(env.Ctx, rt.ID)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if off.Enabled {
		t.Error("routine still enabled after toggle")
	}
	on, err := env.Engine.ToggleRoutine(env.Ctx, rt.ID)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !on.Enabled {
		t.Error("routine still disabled after second toggle")
	}
	// toggling must not disturb anything else
	if on.Title != rt.Title || on.ScheduleTime != rt.ScheduleTime || on.Category != rt.Category || on.AssignedTo != rt.AssignedTo {
		t.Errorf("toggle mutated fields: %+v vs %+v", on, rt)
	}
}

func TestRoutineSeed(t *testing.T) {
	env := newTestEnv(t)
	seed := []byte(`routines:
  - title: Morning email sweep
    schedule_time: "09:00"
    schedule_type: daily
    category: email
  - title: Order watcher
    schedule_time: 07:00-22:00
    schedule_type: interval
    frequency: every 30 minutes
    category: orders
    enabled: false
`)
	created, err := env.Engine.SeedRoutines(env.Ctx, seed)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %d, want 2", len(created))
	}
	if !created[0].Enabled || created[1].Enabled {
		t.Errorf("enabled flags = %v, %v", created[0].Enabled, created[1].Enabled)
	}
	if created[0].AssignedTo != "alex" {
		t.Errorf("default assigned_to = %q, want alex", created[0].AssignedTo)
	}
	if created[0].Position != 0 || created[1].Position != 1 {
		t.Errorf("positions = %d, %d", created[0].Position, created[1].Position)
	}
}

func TestMessageRespond(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.Engine.CreateMessage(env.Ctx, engine.MessageCreateOptions{
		FromAgent: "sandi",
		ToAgent:   "alex",
		Message:   "can you check order 1182?",
	})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	unanswered, err := env.Engine.ListMessages(env.Ctx, repo.MessageFilters{Unanswered: true})
	if err != nil {
		t.Fatalf("list unanswered: %v", err)
	}
	if len(unanswered) != 1 {
		t.Fatalf("unanswered = %d, want 1", len(unanswered))
	}

	got, err := env.Engine.RespondMessage(env.Ctx, m.ID, "done, it was a duplicate charge")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got.Response == nil || *got.Response == "" {
		t.Fatal("response not recorded")
	}
	unanswered, err = env.Engine.ListMessages(env.Ctx, repo.MessageFilters{Unanswered: true})
	if err != nil {
		t.Fatalf("list unanswered: %v", err)
	}
	if len(unanswered) != 0 {
		t.Fatalf("unanswered after respond = %d, want 0", len(unanswered))
	}

	if _, err := env.Engine.RespondMessage(env.Ctx, 404, "hello"); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("respond unknown id err = %v, want ErrNotFound", err)
	}
}

func TestBrainPinAndArchive(t *testing.T) {
	env := newTestEnv(t)
	plain, err := env.Engine.CreateBrainEntry(env.Ctx, engine.BrainCreateOptions{Title: "plain", Content: "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pinned, err := env.Engine.CreateBrainEntry(env.Ctx, engine.BrainCreateOptions{Title: "pinned", Content: "b", Pinned: true})
	if err != nil {
		t.Fatalf("create pinned: %v", err)
	}

	entries, err := env.Engine.ListBrainEntries(env.Ctx, repo.BrainFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != pinned.ID {
		t.Fatalf("order = %v, want pinned first", entries)
	}

	if _, err := env.Engine.ArchiveBrainEntry(env.Ctx, plain.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	entries, err = env.Engine.ListBrainEntries(env.Ctx, repo.BrainFilters{})
	if err != nil {
		t.Fatalf("list after archive: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("archived entry still listed: %v", entries)
	}
	entries, err = env.Engine.ListBrainEntries(env.Ctx, repo.BrainFilters{IncludeArchived: true})
	if err != nil {
		t.Fatalf("list include archived: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("include_archived = %d, want 2", len(entries))
	}
}

func ptr(s string) *string { return &s }

func ids(tasks []domain.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

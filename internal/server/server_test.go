package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"deskhand/internal/config"
	"deskhand/internal/db"
	"deskhand/internal/engine"
	"deskhand/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	handler, err := New(Config{Engine: e, BasePath: "/api", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type taskEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestTaskLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/tasks", map[string]any{
		"title": "Ship invoices",
		"tags":  []string{"billing"},
	}, nil)
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", createRes.StatusCode, string(data))
	}
	var env taskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if !env.Success || env.Message == "" {
		t.Fatalf("create envelope = %s", string(data))
	}
	var created struct {
		ID       int64  `json:"id"`
		Status   string `json:"status"`
		Board    string `json:"board"`
		Position int    `json:"position"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if created.Status != "backlog" || created.Board != "tasks" || created.Position != 0 {
		t.Fatalf("defaults = %+v", created)
	}

	patchRes, patchData := doJSON(t, client, http.MethodPut, srv.URL+"/api/tasks/1", map[string]any{
		"status": "done",
	}, nil)
	if patchRes.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", patchRes.StatusCode, string(patchData))
	}

	delRes, delData := doJSON(t, client, http.MethodDelete, srv.URL+"/api/tasks/1", nil, nil)
	if delRes.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d: %s", delRes.StatusCode, string(delData))
	}
	getRes, _ := doJSON(t, client, http.MethodGet, srv.URL+"/api/tasks/1", nil, nil)
	if getRes.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted task status %d, want 404", getRes.StatusCode)
	}
}

func TestTaskValidationEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/tasks", map[string]any{
		"title":       "",
		"assigned_to": "nobody",
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422: %s", res.StatusCode, string(data))
	}
	var body struct {
		Success bool              `json:"success"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Success {
		t.Error("success should be false")
	}
	if body.Errors["title"] == "" || body.Errors["assigned_to"] == "" {
		t.Errorf("errors = %v", body.Errors)
	}
}

func TestTaskPositionsBatch(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	for _, title := range []string{"a", "b"} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/tasks", map[string]any{"title": title}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create %s: %d %s", title, res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/tasks/positions", map[string]any{
		"tasks": []map[string]any{
			{"id": 2, "status": "todo", "position": 0},
			{"id": 1, "status": "backlog", "position": 0},
			{"id": 99, "status": "todo", "position": 1},
		},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("positions status %d: %s", res.StatusCode, string(data))
	}
	var env struct {
		Data ReorderResponse `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.Updated != 2 || len(env.Data.Missing) != 1 || env.Data.Missing[0] != 99 {
		t.Fatalf("reorder result = %+v", env.Data)
	}
}

func TestBoardSnapshotEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	if res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/tasks", map[string]any{"title": "a", "status": "todo"}, nil); res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, string(data))
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/board", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("board status %d: %s", res.StatusCode, string(data))
	}
	var env struct {
		Data map[string][]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(env.Data) != 4 {
		t.Fatalf("columns = %d, want 4", len(env.Data))
	}
	if len(env.Data["todo"]) != 1 || len(env.Data["backlog"]) != 0 {
		t.Fatalf("column contents = %v", env.Data)
	}
}

func TestActivityFeedEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	for i := 0; i < 4; i++ {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/activity-logs", map[string]any{
			"type":  "email",
			"title": "sent report",
		}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("append: %d %s", res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/activity-logs?page=1&per_page=3", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var env struct {
		Data ActivityPageResponse `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.Meta.Total != 4 || env.Data.Meta.LastPage != 2 || len(env.Data.Items) != 3 {
		t.Fatalf("page = %+v", env.Data.Meta)
	}

	badRes, badData := doJSON(t, client, http.MethodPost, srv.URL+"/api/activity-logs", map[string]any{
		"type":  "email",
		"title": "",
	}, nil)
	if badRes.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("blank title status %d: %s", badRes.StatusCode, string(badData))
	}
}

func TestProjectDetailAndDelete(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/projects", map[string]any{"name": "Shop"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %d %s", res.StatusCode, string(data))
	}
	if res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/tasks", map[string]any{"title": "attached", "project_id": 1}, nil); res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}

	detRes, detData := doJSON(t, client, http.MethodGet, srv.URL+"/api/projects/1", nil, nil)
	if detRes.StatusCode != http.StatusOK {
		t.Fatalf("detail status %d: %s", detRes.StatusCode, string(detData))
	}
	var env struct {
		Data struct {
			Slug  string `json:"slug"`
			Tasks []struct {
				Title string `json:"title"`
			} `json:"tasks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(detData, &env); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if env.Data.Slug != "shop" || len(env.Data.Tasks) != 1 {
		t.Fatalf("detail = %+v", env.Data)
	}

	delRes, delData := doJSON(t, client, http.MethodDelete, srv.URL+"/api/projects/1", nil, nil)
	if delRes.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d: %s", delRes.StatusCode, string(delData))
	}
	taskRes, taskData := doJSON(t, client, http.MethodGet, srv.URL+"/api/tasks/1", nil, nil)
	if taskRes.StatusCode != http.StatusOK {
		t.Fatalf("get task: %d %s", taskRes.StatusCode, string(taskData))
	}
	var taskEnv struct {
		Data struct {
			ProjectID *int64 `json:"project_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(taskData, &taskEnv); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if taskEnv.Data.ProjectID != nil {
		t.Errorf("task project_id = %v, want null", *taskEnv.Data.ProjectID)
	}
}

func TestBearerAuth(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{APIToken: "secret-token"})
	defer cleanup()
	client := srv.Client()

	res, _ := doJSON(t, client, http.MethodGet, srv.URL+"/api/tasks", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no auth status %d, want 401", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/api/tasks", nil, map[string]string{"Authorization": "Bearer wrong"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status %d, want 401", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/api/tasks", nil, map[string]string{"Authorization": "Bearer secret-token"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("valid token status %d, want 200", res.StatusCode)
	}
	// health stays open
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/api/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d, want 200", res.StatusCode)
	}
}

func TestSessionLoginFlow(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{
		APIToken:      "secret-token",
		WebPassword:   "hunter2",
		SessionSecret: "signing-secret",
	})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/login", map[string]any{"password": "wrong"}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/login", map[string]any{"password": "hunter2"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, string(data))
	}
	var cookie string
	for _, c := range res.Cookies() {
		if c.Name == sessionCookieName {
			cookie = c.Value
		}
	}
	if cookie == "" {
		t.Fatal("no session cookie set")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: cookie})
	cookieRes, err := client.Do(req)
	if err != nil {
		t.Fatalf("cookie request: %v", err)
	}
	cookieRes.Body.Close()
	if cookieRes.StatusCode != http.StatusOK {
		t.Fatalf("cookie auth status %d, want 200", cookieRes.StatusCode)
	}

	// logout revokes the session row, so the same cookie stops working
	logoutReq, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/auth/logout", nil)
	logoutReq.AddCookie(&http.Cookie{Name: sessionCookieName, Value: cookie})
	logoutRes, err := client.Do(logoutReq)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	logoutRes.Body.Close()
	if logoutRes.StatusCode != http.StatusOK {
		t.Fatalf("logout status %d", logoutRes.StatusCode)
	}

	req2, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/tasks", nil)
	req2.AddCookie(&http.Cookie{Name: sessionCookieName, Value: cookie})
	revokedRes, err := client.Do(req2)
	if err != nil {
		t.Fatalf("revoked request: %v", err)
	}
	revokedRes.Body.Close()
	if revokedRes.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked cookie status %d, want 401", revokedRes.StatusCode)
	}
}

func TestRoutineToggleEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/scheduled-routines", map[string]any{
		"title":         "Morning email sweep",
		"schedule_time": "09:00",
		"schedule_type": "daily",
		"category":      "email",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create routine: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/api/scheduled-routines/1/toggle", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle: %d %s", res.StatusCode, string(data))
	}
	var env struct {
		Data struct {
			Enabled bool `json:"enabled"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.Enabled {
		t.Error("routine still enabled after toggle")
	}
}

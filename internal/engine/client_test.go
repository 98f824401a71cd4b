package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mosaic/internal/engine"
)

func writeTempImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestCreateSubmitsImagesAndHeader(t *testing.T) {
	dir := t.TempDir()
	images := []string{
		writeTempImage(t, dir, "a.jpg"),
		writeTempImage(t, dir, "b.jpg"),
		writeTempImage(t, dir, "c.jpg"),
	}

	var (
		gotHeader  string
		gotName    string
		gotWebhook string
		gotOptions []engine.Option
		imageCount int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task/new" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("token"); got != "secret-token" {
			t.Errorf("expected token query param, got %q", got)
		}
		gotHeader = r.Header.Get("set-uuid")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotName = r.FormValue("name")
		gotWebhook = r.FormValue("webhook")
		if err := json.Unmarshal([]byte(r.FormValue("options")), &gotOptions); err != nil {
			t.Fatalf("decode options: %v", err)
		}
		imageCount = len(r.MultipartForm.File["images"])
		_ = json.NewEncoder(w).Encode(map[string]string{"uuid": r.Header.Get("set-uuid")})
	}))
	defer server.Close()

	client, err := engine.New(engine.Config{BaseURL: server.URL, Token: "secret-token"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	handle, err := client.Create(context.Background(), engine.CreateRequest{
		JobID:      "job-123",
		Name:       "survey",
		Images:     images,
		Options:    []engine.Option{{Name: "dsm", Value: true}},
		WebhookURL: "http://localhost/webhook/job-123?sig=abc",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle.ID != "job-123" {
		t.Fatalf("expected handle id job-123, got %s", handle.ID)
	}
	if gotHeader != "job-123" {
		t.Fatalf("expected set-uuid header, got %q", gotHeader)
	}
	if gotName != "survey" {
		t.Fatalf("expected name field, got %q", gotName)
	}
	if !strings.Contains(gotWebhook, "sig=") {
		t.Fatalf("expected signed webhook URL, got %q", gotWebhook)
	}
	if imageCount != 3 {
		t.Fatalf("expected 3 image parts, got %d", imageCount)
	}
	if len(gotOptions) != 1 || gotOptions[0].Name != "dsm" || gotOptions[0].Value != true {
		t.Fatalf("unexpected options: %#v", gotOptions)
	}
}

func TestCreateErrorOnEngineFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"queue full"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := engine.New(engine.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := client.Create(context.Background(), engine.CreateRequest{JobID: "job-1"}); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestGetUnknownTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := engine.New(engine.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	handle, err := client.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get should treat 404 as not found, got %v", err)
	}
	if handle != nil {
		t.Fatalf("expected nil handle for unknown task, got %#v", handle)
	}
}

func TestCancelTreatsAlreadyCanceledAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/task/cancel":
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "cannot cancel task"})
		case "/task/job-1/info":
			_ = json.NewEncoder(w).Encode(engine.TaskInfo{UUID: "job-1", Status: engine.TaskStatus{Code: engine.StatusCanceled}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, err := engine.New(engine.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ok, err := client.Task("job-1").Cancel(context.Background())
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if !ok {
		t.Fatal("expected already-canceled task to count as canceled")
	}
}

func TestRestartSendsOptions(t *testing.T) {
	var payload struct {
		UUID    string          `json:"uuid"`
		Options []engine.Option `json:"options"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task/restart" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode restart payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	client, err := engine.New(engine.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ok, err := client.Task("job-9").Restart(context.Background(), []engine.Option{{Name: "dsm", Value: true}})
	if err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if !ok {
		t.Fatal("expected restart success")
	}
	if payload.UUID != "job-9" {
		t.Fatalf("expected uuid job-9, got %q", payload.UUID)
	}
	if len(payload.Options) != 1 || payload.Options[0].Name != "dsm" || payload.Options[0].Value != true {
		t.Fatalf("unexpected restart options: %#v", payload.Options)
	}
}

func TestRemoveRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "task is locked"})
	}))
	defer server.Close()

	client, err := engine.New(engine.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ok, err := client.Task("job-2").Remove(context.Background())
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if ok {
		t.Fatal("expected refused remove to report false")
	}
}

func TestNodeInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(engine.NodeInfo{Version: "2.2.1", Engine: "odm", TaskQueueCount: 1})
	}))
	defer server.Close()

	client, err := engine.New(engine.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	info, err := client.NodeInfo(context.Background())
	if err != nil {
		t.Fatalf("NodeInfo failed: %v", err)
	}
	if info.Version != "2.2.1" || info.Engine != "odm" {
		t.Fatalf("unexpected node info: %#v", info)
	}
}

package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"resume-tailor/internal/bus"
	"resume-tailor/internal/model"
	"resume-tailor/internal/storage"
)

func TestParseHTML(t *testing.T) {
	t.Parallel()

	page := `<html><head>
		<title>Backend Engineer - Acme</title>
		<meta property="og:site_name" content="Acme Careers">
		<script>ignored()</script>
	</head><body><h1>Backend Engineer</h1><p>Build resume tooling in Go.</p></body></html>`

	got, err := parseHTML(page)
	if err != nil {
		t.Fatalf("parseHTML error: %v", err)
	}
	if got.Title != "Backend Engineer - Acme" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if got.Company != "Acme Careers" {
		t.Fatalf("unexpected company %q", got.Company)
	}
	if !strings.Contains(got.Summary, "Build resume tooling in Go.") {
		t.Fatalf("expected body text in summary, got %q", got.Summary)
	}
	if strings.Contains(got.Summary, "ignored") {
		t.Fatalf("expected script content excluded, got %q", got.Summary)
	}
}

func TestParseHTMLWithoutTitle(t *testing.T) {
	t.Parallel()

	if _, err := parseHTML(`<html><body>no title here</body></html>`); err == nil {
		t.Fatalf("expected error for page without title")
	}
}

func TestExtractFromText(t *testing.T) {
	t.Parallel()

	got := extractFromText("Senior Go Engineer\nWe build things.\nRemote friendly.")
	if got.Title != "Senior Go Engineer" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if !strings.Contains(got.Summary, "Remote friendly.") {
		t.Fatalf("expected full text in summary, got %q", got.Summary)
	}

	long := extractFromText(strings.Repeat("x", 200))
	if len(long.Title) != 120 {
		t.Fatalf("expected title capped at 120 chars, got %d", len(long.Title))
	}
}

func newScrapeFixture(t *testing.T) (*Worker, *storage.Store, *bus.MemoryBus) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "resumes.db"))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	mb := bus.NewMemoryBus(nil)
	worker := NewWorker(store, mb, nil, nil, Config{})
	worker.Register(mb)
	return worker, store, mb
}

func seedProcessingJob(t *testing.T, store *storage.Store, id string, url *string) {
	t.Helper()
	proc := &model.Process{ID: "proc-" + id, Status: model.ProcessInitiated}
	job := &model.Job{ID: id, URL: url, Title: model.UnderExtraction, Company: model.UnderExtraction, Status: model.JobProcessing}
	if err := store.CreateJobWithProcess(context.Background(), job, proc); err != nil {
		t.Fatalf("seed job error: %v", err)
	}
}

func TestScrapeFromURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Go Engineer</title>
			<meta property="og:site_name" content="Acme"></head>
			<body>Great Go role.</body></html>`))
	}))
	t.Cleanup(srv.Close)

	_, store, mb := newScrapeFixture(t)
	ctx := context.Background()
	url := srv.URL
	seedProcessingJob(t, store, "j1", &url)

	trigger := bus.JobScrapeTriggered{JobID: "j1", ProcessID: "proc-j1", JobURL: url}
	if err := mb.Publish(ctx, bus.TopicJobScrapeTriggered, "j1", trigger); err != nil {
		t.Fatalf("publish trigger error: %v", err)
	}

	job, err := store.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if job.Status != model.JobSuccess {
		t.Fatalf("expected job success, got %s", job.Status)
	}
	if job.Title != "Go Engineer" || job.Company != "Acme" {
		t.Fatalf("unexpected extraction: title=%q company=%q", job.Title, job.Company)
	}
	if _, ok := job.Metadata["extracted_at"]; !ok {
		t.Fatalf("expected extraction timestamp in metadata")
	}
	if got := len(mb.Events(bus.TopicJobScrapeSuccess)); got != 1 {
		t.Fatalf("expected 1 success event, got %d", got)
	}
}

func TestScrapeFromDescription(t *testing.T) {
	t.Parallel()

	_, store, mb := newScrapeFixture(t)
	ctx := context.Background()
	seedProcessingJob(t, store, "j1", nil)

	trigger := bus.JobScrapeTriggered{
		JobID:       "j1",
		ProcessID:   "proc-j1",
		Description: "Platform Engineer\nKafka, Go, Postgres.",
	}
	if err := mb.Publish(ctx, bus.TopicJobScrapeTriggered, "j1", trigger); err != nil {
		t.Fatalf("publish trigger error: %v", err)
	}

	job, err := store.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if job.Status != model.JobSuccess {
		t.Fatalf("expected job success, got %s", job.Status)
	}
	if job.Title != "Platform Engineer" {
		t.Fatalf("unexpected title %q", job.Title)
	}
}

func TestScrapeFailureMarksJobAndProcess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, store, mb := newScrapeFixture(t)
	ctx := context.Background()
	url := srv.URL
	seedProcessingJob(t, store, "j1", &url)

	trigger := bus.JobScrapeTriggered{JobID: "j1", ProcessID: "proc-j1", JobURL: url}
	if err := mb.Publish(ctx, bus.TopicJobScrapeTriggered, "j1", trigger); err != nil {
		t.Fatalf("publish trigger error: %v", err)
	}

	job, err := store.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if job.Status != model.JobFailure {
		t.Fatalf("expected job failure, got %s", job.Status)
	}
	proc, err := store.GetProcess(ctx, "proc-j1")
	if err != nil {
		t.Fatalf("GetProcess error: %v", err)
	}
	if proc.Status != model.ProcessFailure {
		t.Fatalf("expected process failure, got %s", proc.Status)
	}
	if got := len(mb.Events(bus.TopicJobScrapeFailed)); got != 1 {
		t.Fatalf("expected 1 failed event, got %d", got)
	}
}

func TestScrapeSkipsNonProcessingJob(t *testing.T) {
	t.Parallel()

	_, store, mb := newScrapeFixture(t)
	ctx := context.Background()
	seedProcessingJob(t, store, "j1", nil)

	first := bus.JobScrapeTriggered{JobID: "j1", ProcessID: "proc-j1", Description: "Engineer\nDetails."}
	if err := mb.Publish(ctx, bus.TopicJobScrapeTriggered, "j1", first); err != nil {
		t.Fatalf("publish trigger error: %v", err)
	}

	// Redelivery after completion is skipped without touching the job.
	if err := mb.Redeliver(ctx, bus.TopicJobScrapeTriggered, 0); err != nil {
		t.Fatalf("Redeliver error: %v", err)
	}
	if got := len(mb.Events(bus.TopicJobScrapeSuccess)); got != 1 {
		t.Fatalf("expected 1 success event after redelivery, got %d", got)
	}
}

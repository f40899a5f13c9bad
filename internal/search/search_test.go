package search

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/bus"
	"resume-tailor/internal/model"
	"resume-tailor/internal/sections"
	"resume-tailor/internal/storage"
)

func TestBuildContent(t *testing.T) {
	t.Parallel()

	views := []model.SectionView{
		{Type: model.SectionEducation, Education: &model.Education{School: "MIT", Degree: "BSc"}},
		{Type: model.SectionSkill, Skills: []model.SkillView{{SkillRef: model.SkillRef{Name: "Go", Category: "language"}}}},
		{Type: model.SectionProject, Project: &model.Project{Name: "tailor"}, ProjectSkills: []model.SkillRef{{Name: "Kafka"}}},
	}

	content := BuildContent(views)
	for _, want := range []string{"MIT", "BSc", "Go", "language", "tailor", "Kafka"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected content to contain %q, got %q", want, content)
		}
	}
}

func TestIndexerMaintainsDocument(t *testing.T) {
	t.Parallel()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "resumes.db"))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	mb := bus.NewMemoryBus(nil)
	indexer := NewIndexer(store)
	indexer.Register(mb)

	ctx := context.Background()
	base, err := store.EnsureBaseResume(ctx, "u1")
	if err != nil {
		t.Fatalf("EnsureBaseResume error: %v", err)
	}
	engine := sections.NewEngine(store)
	if _, err := engine.ReplaceSections(ctx, base.ID, []model.SectionInput{{
		Type: model.SectionEducation,
		Education: &model.EducationInput{
			School:     "MIT",
			Degree:     "BSc",
			StartMonth: 9,
			StartYear:  2015,
		},
	}}); err != nil {
		t.Fatalf("ReplaceSections error: %v", err)
	}

	ev := bus.ResumeUpdated{ResumeID: base.ID, UserID: "u1", ChangeType: bus.ChangeBulkReplace}
	if err := mb.Publish(ctx, bus.TopicResumeUpdated, base.ID, ev); err != nil {
		t.Fatalf("publish error: %v", err)
	}

	doc, err := store.GetSearchDocument(ctx, base.ID)
	if err != nil {
		t.Fatalf("GetSearchDocument error: %v", err)
	}
	if !strings.Contains(doc.Content, "MIT") {
		t.Fatalf("expected indexed content, got %q", doc.Content)
	}
	if doc.UserID != "u1" {
		t.Fatalf("expected document owner u1, got %s", doc.UserID)
	}

	// Thumbnail updates carry no text change and are skipped.
	thumb := bus.ResumeUpdated{ResumeID: base.ID, UserID: "u1", ChangeType: bus.ChangeThumbnailUpdated}
	if err := mb.Publish(ctx, bus.TopicResumeUpdated, base.ID, thumb); err != nil {
		t.Fatalf("publish thumbnail event error: %v", err)
	}

	// Deletion removes the document.
	del := bus.ResumeUpdated{ResumeID: base.ID, UserID: "u1", ChangeType: bus.ChangeResumeDeleted}
	if err := mb.Publish(ctx, bus.TopicResumeUpdated, base.ID, del); err != nil {
		t.Fatalf("publish delete event error: %v", err)
	}
	if _, err := store.GetSearchDocument(ctx, base.ID); !apperr.IsKind(err, apperr.NotFound) {
		t.Fatalf("expected document removed, got %v", err)
	}
}

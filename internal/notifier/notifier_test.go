package notifier

import (
	"context"
	"strings"
	"testing"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/bus"
	"resume-tailor/internal/model"
)

type stubUserStore struct {
	users map[string]*model.User
}

func (s *stubUserStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, apperr.New(apperr.NotFound, "user %s not found", id)
}

type recordingSender struct {
	sent []EmailMessage
}

func (s *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	s.sent = append(s.sent, msg)
	return nil
}

func TestNotifyOnTailoringSuccess(t *testing.T) {
	t.Parallel()

	store := &stubUserStore{users: map[string]*model.User{
		"u1": {ID: "u1", Email: "u1@example.com"},
	}}
	sender := &recordingSender{}
	n := NewTailoringNotifier(store, sender, "noreply@example.com")

	mb := bus.NewMemoryBus(nil)
	n.Register(mb)

	ev := bus.ResumeTailoringSuccess{ResumeID: "r1", JobID: "j1", UserID: "u1"}
	if err := mb.Publish(context.Background(), bus.TopicTailoringSuccess, "r1", ev); err != nil {
		t.Fatalf("publish error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To[0] != "u1@example.com" {
		t.Fatalf("unexpected recipient %v", msg.To)
	}
	if msg.From != "noreply@example.com" {
		t.Fatalf("unexpected sender %s", msg.From)
	}
	if !strings.Contains(msg.Body, "r1") {
		t.Fatalf("expected resume id in body, got %q", msg.Body)
	}
}

func TestNotifyOnTailoringFailureIncludesReason(t *testing.T) {
	t.Parallel()

	store := &stubUserStore{users: map[string]*model.User{
		"u1": {ID: "u1", Email: "u1@example.com"},
	}}
	sender := &recordingSender{}
	n := NewTailoringNotifier(store, sender, "noreply@example.com")

	mb := bus.NewMemoryBus(nil)
	n.Register(mb)

	ev := bus.ResumeTailoringFailed{ResumeID: "r1", JobID: "j1", UserID: "u1", ErrorMessage: "scrape timed out"}
	if err := mb.Publish(context.Background(), bus.TopicTailoringFailed, "r1", ev); err != nil {
		t.Fatalf("publish error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Body, "scrape timed out") {
		t.Fatalf("expected failure reason in body, got %q", sender.sent[0].Body)
	}
}

func TestNotifySwallowsUnknownUser(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	n := NewTailoringNotifier(&stubUserStore{}, sender, "noreply@example.com")

	err := n.HandleSuccess(context.Background(), []byte(`{"resume_id":"r1","user_id":"ghost"}`))
	if err != nil {
		t.Fatalf("expected handler to swallow the lookup error, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no mail for unknown user, got %d", len(sender.sent))
	}
}

func TestBuildEmailData(t *testing.T) {
	t.Parallel()

	data := buildEmailData(EmailMessage{
		From:    "noreply@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Done",
		Body:    "Your resume is ready.",
	})
	for _, want := range []string{"From: noreply@example.com", "To: a@example.com, b@example.com", "Subject: Done", "Your resume is ready."} {
		if !strings.Contains(data, want) {
			t.Fatalf("expected %q in mail data, got %q", want, data)
		}
	}
}

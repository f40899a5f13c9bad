package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/model"
)

func TestHealth(t *testing.T) {
	t.Parallel()

	h := NewHandler(&stubResumes{}, &stubSections{}, &stubEmitter{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestMissingUserHeader(t *testing.T) {
	t.Parallel()

	h := NewHandler(&stubResumes{}, &stubSections{}, &stubEmitter{})
	req := httptest.NewRequest(http.MethodGet, "/api/resumes/base", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestTailorResume(t *testing.T) {
	t.Parallel()

	rs := &stubResumes{view: &model.ResumeWithSections{Resume: model.Resume{ID: "r1", UserID: "u1"}}}
	h := NewHandler(rs, &stubSections{}, &stubEmitter{})

	body := strings.NewReader(`{"target":"https://example.com/jobs/1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/resumes/tailor", body)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if rs.tailorCalls != 1 {
		t.Fatalf("expected tailor called once, got %d", rs.tailorCalls)
	}
	if rs.lastTarget != "https://example.com/jobs/1" {
		t.Fatalf("unexpected target %q", rs.lastTarget)
	}
}

func TestErrorKindMapsToStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.InvalidArgument, http.StatusBadRequest},
		{apperr.NotFound, http.StatusNotFound},
		{apperr.PermissionDenied, http.StatusForbidden},
		{apperr.AlreadyExists, http.StatusConflict},
		{apperr.Internal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rs := &stubResumes{err: apperr.New(tc.kind, "boom")}
		h := NewHandler(rs, &stubSections{}, &stubEmitter{})
		req := httptest.NewRequest(http.MethodGet, "/api/resumes/r1", nil)
		req.Header.Set("X-User-ID", "u1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("kind %s: expected %d, got %d", tc.kind, tc.want, w.Code)
		}
	}
}

func TestReplaceSectionsEmitsChange(t *testing.T) {
	t.Parallel()

	rs := &stubResumes{resume: &model.Resume{ID: "r1", UserID: "u1"}}
	sec := &stubSections{view: &model.ResumeWithSections{Resume: model.Resume{ID: "r1"}}}
	em := &stubEmitter{}
	h := NewHandler(rs, sec, em)

	body := strings.NewReader(`{"sections":[]}`)
	req := httptest.NewRequest(http.MethodPut, "/api/resumes/r1/sections", body)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if sec.replaceCalls != 1 {
		t.Fatalf("expected replace called once, got %d", sec.replaceCalls)
	}
	if em.bulkCalls != 1 {
		t.Fatalf("expected bulk replace emitted once, got %d", em.bulkCalls)
	}
}

func TestRearrangeEmitsChange(t *testing.T) {
	t.Parallel()

	rs := &stubResumes{resume: &model.Resume{ID: "r1", UserID: "u1"}}
	sec := &stubSections{view: &model.ResumeWithSections{Resume: model.Resume{ID: "r1"}}}
	em := &stubEmitter{}
	h := NewHandler(rs, sec, em)

	body := strings.NewReader(`{"section_ids":["s2","s1"]}`)
	req := httptest.NewRequest(http.MethodPut, "/api/resumes/r1/sections:rearrange", body)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if sec.rearrangeCalls != 1 {
		t.Fatalf("expected rearrange called once, got %d", sec.rearrangeCalls)
	}
	if em.reorderCalls != 1 {
		t.Fatalf("expected reorder emitted once, got %d", em.reorderCalls)
	}
	if len(sec.lastOrder) != 2 || sec.lastOrder[0] != "s2" {
		t.Fatalf("unexpected order payload %v", sec.lastOrder)
	}
}

func TestInvalidJSONPayload(t *testing.T) {
	t.Parallel()

	h := NewHandler(&stubResumes{}, &stubSections{}, &stubEmitter{})
	req := httptest.NewRequest(http.MethodPost, "/api/resumes/tailor", strings.NewReader("{"))
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// --- stubs ---

type stubResumes struct {
	view        *model.ResumeWithSections
	resume      *model.Resume
	err         error
	tailorCalls int
	lastTarget  string
}

func (s *stubResumes) TailorResume(ctx context.Context, userID, target string) (*model.ResumeWithSections, error) {
	s.tailorCalls++
	s.lastTarget = target
	return s.view, s.err
}

func (s *stubResumes) GetResume(ctx context.Context, callerID, idOrAlias string) (*model.ResumeWithSections, error) {
	return s.view, s.err
}

func (s *stubResumes) ResolveResume(ctx context.Context, callerID, idOrAlias string) (*model.Resume, error) {
	return s.resume, s.err
}

func (s *stubResumes) ProvisionUser(ctx context.Context, userID string) (*model.Resume, error) {
	return s.resume, s.err
}

type stubSections struct {
	view           *model.ResumeWithSections
	err            error
	replaceCalls   int
	rearrangeCalls int
	lastOrder      []string
}

func (s *stubSections) ReplaceSections(ctx context.Context, resumeID string, inputs []model.SectionInput) (*model.ResumeWithSections, error) {
	s.replaceCalls++
	return s.view, s.err
}

func (s *stubSections) Rearrange(ctx context.Context, resumeID string, orderedIDs []string) (*model.ResumeWithSections, error) {
	s.rearrangeCalls++
	s.lastOrder = orderedIDs
	return s.view, s.err
}

type stubEmitter struct {
	bulkCalls    int
	reorderCalls int
}

func (s *stubEmitter) BulkReplace(ctx context.Context, resumeID, userID string) error {
	s.bulkCalls++
	return nil
}

func (s *stubEmitter) SectionReordered(ctx context.Context, resumeID, userID string) error {
	s.reorderCalls++
	return nil
}

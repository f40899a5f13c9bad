package api

import (
	"context"
	"encoding/json"
	"net/http"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/model"
)

// ResumeService 抽象简历编排接口。
type ResumeService interface {
	TailorResume(ctx context.Context, userID, target string) (*model.ResumeWithSections, error)
	GetResume(ctx context.Context, callerID, idOrAlias string) (*model.ResumeWithSections, error)
	ResolveResume(ctx context.Context, callerID, idOrAlias string) (*model.Resume, error)
	ProvisionUser(ctx context.Context, userID string) (*model.Resume, error)
}

// SectionService 抽象分区写入接口。
type SectionService interface {
	ReplaceSections(ctx context.Context, resumeID string, inputs []model.SectionInput) (*model.ResumeWithSections, error)
	Rearrange(ctx context.Context, resumeID string, orderedIDs []string) (*model.ResumeWithSections, error)
}

// ChangeEmitter 发布简历变更事件。
type ChangeEmitter interface {
	BulkReplace(ctx context.Context, resumeID, userID string) error
	SectionReordered(ctx context.Context, resumeID, userID string) error
}

// TailorRequest 表示定制请求，target 为职位 URL 或职位描述全文。
type TailorRequest struct {
	Target string `json:"target"`
}

// ReplaceSectionsRequest 表示整体换入请求。
type ReplaceSectionsRequest struct {
	Sections []model.SectionInput `json:"sections"`
}

// RearrangeRequest 表示重排请求。
type RearrangeRequest struct {
	SectionIDs []string `json:"section_ids"`
}

// NewHandler 构造 HTTP 多路复用器。
func NewHandler(resumes ResumeService, sections SectionService, emitter ChangeEmitter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/users/provision", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		base, err := resumes.ProvisionUser(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, base)
	})

	mux.HandleFunc("POST /api/resumes/tailor", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req TailorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		resume, err := resumes.TailorResume(r.Context(), userID, req.Target)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, resume)
	})

	mux.HandleFunc("GET /api/resumes/{id}", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		resume, err := resumes.GetResume(r.Context(), userID, r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resume)
	})

	mux.HandleFunc("PUT /api/resumes/{id}/sections", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req ReplaceSectionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		resume, err := resumes.ResolveResume(r.Context(), userID, r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		view, err := sections.ReplaceSections(r.Context(), resume.ID, req.Sections)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := emitter.BulkReplace(r.Context(), resume.ID, resume.UserID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})

	mux.HandleFunc("PUT /api/resumes/{id}/sections:rearrange", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req RearrangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		resume, err := resumes.ResolveResume(r.Context(), userID, r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		view, err := sections.Rearrange(r.Context(), resume.ID, req.SectionIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := emitter.SectionReordered(r.Context(), resume.ID, resume.UserID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})

	return mux
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing X-User-ID header"})
		return "", false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.InvalidArgument:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.PermissionDenied:
		status = http.StatusForbidden
	case apperr.AlreadyExists:
		status = http.StatusConflict
	case apperr.FailedPrecondition:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

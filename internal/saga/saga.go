package saga

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/bus"
	"resume-tailor/internal/fanout"
	"resume-tailor/internal/model"
)

// Store 抽象 saga 所需的存储接口。
type Store interface {
	GetResume(ctx context.Context, id string) (*model.Resume, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListProcessingResumesByJob(ctx context.Context, jobID string) ([]model.Resume, error)
	TransitionResumeStatus(ctx context.Context, id string, from, to model.ResumeStatus) (bool, error)
	UpdateResumeProcessStatus(ctx context.Context, id string, status model.ProcessStatus, details string) error
}

// Engine 抽象段落替换引擎。
type Engine interface {
	ReplaceSections(ctx context.Context, resumeID string, inputs []model.SectionInput) (*model.ResumeWithSections, error)
}

// Generator 抽象生成协作方：根据职位为简历产出新的段落载荷。
type Generator interface {
	Generate(ctx context.Context, resume model.Resume, job model.Job) ([]model.SectionInput, error)
}

// Saga 简历定制的事件驱动链路。
// 处理器从不向总线抛错：至少一次投递下抛错意味着无限重投，
// 所有失败都落为状态迁移加失败事件，清理自身失败时仅记录日志。
// 每次状态迁移前用乐观守卫重读当前状态，重复或乱序投递安全跳过。
type Saga struct {
	store   Store
	engine  Engine
	gen     Generator
	pub     bus.Publisher
	emitter *fanout.Emitter
	logger  *log.Logger
	now     func() time.Time
}

// New 创建 saga。
func New(store Store, engine Engine, gen Generator, pub bus.Publisher, emitter *fanout.Emitter, logger *log.Logger) *Saga {
	if logger == nil {
		logger = log.New(os.Stdout, "[saga] ", log.LstdFlags)
	}
	return &Saga{store: store, engine: engine, gen: gen, pub: pub, emitter: emitter, logger: logger, now: time.Now}
}

// Register 订阅 saga 关心的主题。
func (s *Saga) Register(b bus.Bus) {
	b.Subscribe(bus.TopicJobScrapeSuccess, s.HandleJobScrapeSuccess)
	b.Subscribe(bus.TopicJobScrapeFailed, s.HandleJobScrapeFailed)
	b.Subscribe(bus.TopicTailoringTriggered, s.HandleTailoringTriggered)
}

// HandleJobScrapeSuccess 职位抓取完成：对所有等待该职位的 Processing
// 简历逐个触发定制，单条失败不阻塞其余。
func (s *Saga) HandleJobScrapeSuccess(ctx context.Context, data []byte) error {
	var ev bus.JobScrapeSuccess
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Printf("bad scrape success payload: %v", err)
		return nil
	}

	resumes, err := s.store.ListProcessingResumesByJob(ctx, ev.JobID)
	if err != nil {
		s.logger.Printf("list waiting resumes: job=%s err=%v", ev.JobID, err)
		return nil
	}

	for _, r := range resumes {
		trigger := bus.ResumeTailoringTriggered{
			ResumeID:    r.ID,
			JobID:       ev.JobID,
			ProcessID:   r.ProcessID,
			UserID:      r.UserID,
			JobURL:      ev.JobURL,
			TriggeredAt: s.now().UTC(),
		}
		if err := s.pub.Publish(ctx, bus.TopicTailoringTriggered, r.ID, trigger); err != nil {
			s.logger.Printf("trigger tailoring: resume=%s err=%v", r.ID, err)
			continue
		}
	}
	return nil
}

// HandleJobScrapeFailed 职位抓取失败：所有等待的简历标记失败并通知。
func (s *Saga) HandleJobScrapeFailed(ctx context.Context, data []byte) error {
	var ev bus.JobScrapeFailed
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Printf("bad scrape failed payload: %v", err)
		return nil
	}

	resumes, err := s.store.ListProcessingResumesByJob(ctx, ev.JobID)
	if err != nil {
		s.logger.Printf("list waiting resumes: job=%s err=%v", ev.JobID, err)
		return nil
	}

	for _, r := range resumes {
		s.failResume(ctx, r, "job scrape failed: "+ev.ErrorMessage)
	}
	return nil
}

// HandleTailoringTriggered 执行生成与段落替换。
// 仅当简历仍是 Processing 且进度记录匹配当前事件时才动作，
// 迟到或重复的触发事件安全落空。
func (s *Saga) HandleTailoringTriggered(ctx context.Context, data []byte) error {
	var ev bus.ResumeTailoringTriggered
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Printf("bad tailoring trigger payload: %v", err)
		return nil
	}

	resume, err := s.store.GetResume(ctx, ev.ResumeID)
	if err != nil {
		if !apperr.IsKind(err, apperr.NotFound) {
			s.logger.Printf("load resume: %s err=%v", ev.ResumeID, err)
		}
		return nil
	}
	if resume.Status != model.ResumeProcessing {
		s.logger.Printf("skip trigger: resume=%s status=%s", resume.ID, resume.Status)
		return nil
	}
	if resume.ProcessID != ev.ProcessID {
		s.logger.Printf("skip stale trigger: resume=%s process=%s", resume.ID, ev.ProcessID)
		return nil
	}

	job, err := s.store.GetJob(ctx, ev.JobID)
	if err != nil {
		s.failResume(ctx, *resume, "job lookup failed: "+err.Error())
		return nil
	}

	inputs, err := s.gen.Generate(ctx, *resume, *job)
	if err != nil {
		s.failResume(ctx, *resume, "section generation failed: "+err.Error())
		return nil
	}

	if _, err := s.engine.ReplaceSections(ctx, resume.ID, inputs); err != nil {
		s.failResume(ctx, *resume, "section replacement failed: "+err.Error())
		return nil
	}

	changed, err := s.store.TransitionResumeStatus(ctx, resume.ID, model.ResumeProcessing, model.ResumeSuccess)
	if err != nil {
		s.logger.Printf("mark resume success: %s err=%v", resume.ID, err)
		return nil
	}
	if !changed {
		// 并发处理器抢先完成，保持幂等不再发事件
		return nil
	}
	if err := s.store.UpdateResumeProcessStatus(ctx, resume.ProcessID, model.ProcessSuccess, ""); err != nil {
		s.logger.Printf("mark process success: %s err=%v", resume.ProcessID, err)
	}

	success := bus.ResumeTailoringSuccess{
		ResumeID:    resume.ID,
		JobID:       job.ID,
		ProcessID:   resume.ProcessID,
		UserID:      resume.UserID,
		CompletedAt: s.now().UTC(),
	}
	if err := s.pub.Publish(ctx, bus.TopicTailoringSuccess, resume.ID, success); err != nil {
		s.logger.Printf("publish tailoring success: resume=%s err=%v", resume.ID, err)
	}
	if err := s.emitter.BulkReplace(ctx, resume.ID, resume.UserID); err != nil {
		s.logger.Printf("emit resume updated: resume=%s err=%v", resume.ID, err)
	}
	return nil
}

// failResume 守卫式失败收尾：迁移状态、标记进度、发失败事件。
// 任一步失败只记录，绝不向处理器外抛出。
func (s *Saga) failResume(ctx context.Context, resume model.Resume, reason string) {
	changed, err := s.store.TransitionResumeStatus(ctx, resume.ID, model.ResumeProcessing, model.ResumeFailure)
	if err != nil {
		s.logger.Printf("mark resume failure: %s err=%v", resume.ID, err)
		return
	}
	if !changed {
		return
	}

	if err := s.store.UpdateResumeProcessStatus(ctx, resume.ProcessID, model.ProcessFailure, reason); err != nil {
		s.logger.Printf("mark process failure: %s err=%v", resume.ProcessID, err)
	}

	jobID := ""
	if resume.JobID != nil {
		jobID = *resume.JobID
	}
	failed := bus.ResumeTailoringFailed{
		ResumeID:     resume.ID,
		JobID:        jobID,
		ProcessID:    resume.ProcessID,
		UserID:       resume.UserID,
		ErrorMessage: reason,
		FailedAt:     s.now().UTC(),
	}
	if err := s.pub.Publish(ctx, bus.TopicTailoringFailed, resume.ID, failed); err != nil {
		s.logger.Printf("publish tailoring failed: resume=%s err=%v", resume.ID, err)
	}
}

package resume

import (
	"context"
	"fmt"
	"time"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/bus"
	"resume-tailor/internal/model"

	"github.com/google/uuid"
)

// BaseAlias 基础简历的地址别名。
const BaseAlias = "base"

// Store 抽象编排器所需的存储接口。
type Store interface {
	GetResume(ctx context.Context, id string) (*model.Resume, error)
	GetBaseResume(ctx context.Context, userID string) (*model.Resume, error)
	GetResumeByUserJob(ctx context.Context, userID, jobID string) (*model.Resume, error)
	GetResumeWithSections(ctx context.Context, id string) (*model.ResumeWithSections, error)
	CreateResumeWithProcess(ctx context.Context, resume *model.Resume, proc *model.ResumeProcess) error
	AttachResumeProcess(ctx context.Context, resumeID string, proc *model.ResumeProcess) error
	EnsureBaseResume(ctx context.Context, userID string) (*model.Resume, error)
}

// JobAcquirer 抽象职位获取网关。
type JobAcquirer interface {
	AcquireJob(ctx context.Context, target string) (*model.Job, *model.Process, error)
}

// Orchestrator 简历编排器：解析 base 别名、校验归属，
// 驱动针对某职位的定制简历创建与重试。
type Orchestrator struct {
	store   Store
	gateway JobAcquirer
	pub     bus.Publisher
	adminID string
	now     func() time.Time
}

// NewOrchestrator 创建编排器，adminID 为可绕过归属校验的管理主体。
func NewOrchestrator(store Store, gateway JobAcquirer, pub bus.Publisher, adminID string) *Orchestrator {
	return &Orchestrator{store: store, gateway: gateway, pub: pub, adminID: adminID, now: time.Now}
}

// TailorResume 为用户针对目标职位创建或复用定制简历。
// 同一 (用户, 职位) 的重复请求在未失败时幂等返回既有简历；
// 失败简历走重试路径，产生全新的进度记录。
func (o *Orchestrator) TailorResume(ctx context.Context, userID, target string) (*model.ResumeWithSections, error) {
	job, _, err := o.gateway.AcquireJob(ctx, target)
	if err != nil {
		return nil, err
	}

	existing, err := o.store.GetResumeByUserJob(ctx, userID, job.ID)
	switch {
	case err == nil && existing.Status != model.ResumeFailure:
		// 幂等：定制仍在进行或已完成，原样返回
		return o.store.GetResumeWithSections(ctx, existing.ID)

	case err == nil:
		// 失败重试：全新 Process，重置为 Processing
		proc := &model.ResumeProcess{
			ID:     uuid.NewString(),
			Desc:   "resume tailoring retry",
			Status: model.ProcessInitiated,
		}
		if err := o.store.AttachResumeProcess(ctx, existing.ID, proc); err != nil {
			return nil, err
		}
		if job.Status == model.JobSuccess {
			if err := o.emitTriggered(ctx, existing.ID, job, proc.ID, userID); err != nil {
				return nil, err
			}
		}
		return o.store.GetResumeWithSections(ctx, existing.ID)

	case apperr.IsKind(err, apperr.NotFound):
		proc := &model.ResumeProcess{
			ID:     uuid.NewString(),
			Desc:   "resume tailoring",
			Status: model.ProcessInitiated,
		}
		created := &model.Resume{
			ID:     uuid.NewString(),
			UserID: userID,
			JobID:  &job.ID,
			Base:   false,
			Status: model.ResumeProcessing,
		}
		if err := o.store.CreateResumeWithProcess(ctx, created, proc); err != nil {
			return nil, err
		}
		// 职位已抓取完成时立即触发，否则等待抓取完成事件
		if job.Status == model.JobSuccess {
			if err := o.emitTriggered(ctx, created.ID, job, proc.ID, userID); err != nil {
				return nil, err
			}
		}
		return o.store.GetResumeWithSections(ctx, created.ID)

	default:
		return nil, err
	}
}

// ResolveResume 解析简历 id 或 base 别名并校验归属。
// 管理主体跳过归属校验，但不存在的简历仍然 NotFound。
func (o *Orchestrator) ResolveResume(ctx context.Context, callerID, idOrAlias string) (*model.Resume, error) {
	var (
		resume *model.Resume
		err    error
	)
	if idOrAlias == BaseAlias {
		resume, err = o.store.GetBaseResume(ctx, callerID)
	} else {
		resume, err = o.store.GetResume(ctx, idOrAlias)
	}
	if err != nil {
		return nil, err
	}

	if resume.UserID != callerID && !o.isAdmin(callerID) {
		return nil, apperr.New(apperr.PermissionDenied, "resume %s does not belong to caller", resume.ID)
	}
	return resume, nil
}

// GetResume 解析并返回带段落的简历视图。
func (o *Orchestrator) GetResume(ctx context.Context, callerID, idOrAlias string) (*model.ResumeWithSections, error) {
	resume, err := o.ResolveResume(ctx, callerID, idOrAlias)
	if err != nil {
		return nil, err
	}
	return o.store.GetResumeWithSections(ctx, resume.ID)
}

// ProvisionUser 用户开通钩子：保证基础简历存在，幂等。
func (o *Orchestrator) ProvisionUser(ctx context.Context, userID string) (*model.Resume, error) {
	return o.store.EnsureBaseResume(ctx, userID)
}

func (o *Orchestrator) isAdmin(callerID string) bool {
	return o.adminID != "" && callerID == o.adminID
}

func (o *Orchestrator) emitTriggered(ctx context.Context, resumeID string, job *model.Job, processID, userID string) error {
	ev := bus.ResumeTailoringTriggered{
		ResumeID:    resumeID,
		JobID:       job.ID,
		ProcessID:   processID,
		UserID:      userID,
		TriggeredAt: o.now().UTC(),
	}
	if job.URL != nil {
		ev.JobURL = *job.URL
	}
	if err := o.pub.Publish(ctx, bus.TopicTailoringTriggered, resumeID, ev); err != nil {
		return fmt.Errorf("publish tailoring trigger: %w", err)
	}
	return nil
}

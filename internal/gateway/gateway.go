package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/bus"
	"resume-tailor/internal/model"

	"github.com/google/uuid"
)

// MinDescriptionLen 描述模式的最小长度，低于此值视为非法目标。
const MinDescriptionLen = 300

// Store 抽象网关所需的存储接口。
type Store interface {
	GetJobByURL(ctx context.Context, url string) (*model.Job, error)
	GetProcess(ctx context.Context, id string) (*model.Process, error)
	CreateJobWithProcess(ctx context.Context, job *model.Job, proc *model.Process) error
	ResetJobForRetry(ctx context.Context, jobID string, proc *model.Process) (*model.Job, error)
}

// Gateway 职位获取网关：按 URL 去重抓取请求，维护 Job+Process 状态对，
// 对每个新建或重试的职位恰好发出一次抓取触发事件。
type Gateway struct {
	store Store
	pub   bus.Publisher
	now   func() time.Time
}

// New 创建网关。
func New(store Store, pub bus.Publisher) *Gateway {
	return &Gateway{store: store, pub: pub, now: time.Now}
}

// AcquireJob 解析目标并返回对应的职位与进度记录。
// URL 模式下命中非失败职位为幂等缓存命中，不发事件；
// 失败职位走唯一的重试路径：新 Process、重置为 Processing、重新触发。
func (g *Gateway) AcquireJob(ctx context.Context, target string) (*model.Job, *model.Process, error) {
	target = strings.TrimSpace(target)

	jobURL, isURL := parseJobURL(target)
	if !isURL && len(target) < MinDescriptionLen {
		return nil, nil, apperr.New(apperr.InvalidArgument,
			"target is neither an http(s) url nor a description of at least %d chars", MinDescriptionLen)
	}

	if isURL {
		existing, err := g.store.GetJobByURL(ctx, jobURL)
		if err == nil {
			if existing.Status != model.JobFailure {
				proc, err := g.store.GetProcess(ctx, existing.ProcessID)
				if err != nil {
					return nil, nil, err
				}
				return existing, proc, nil
			}
			return g.retryJob(ctx, existing)
		}
		if !apperr.IsKind(err, apperr.NotFound) {
			return nil, nil, err
		}
		return g.createJob(ctx, &jobURL, "")
	}

	return g.createJob(ctx, nil, target)
}

func (g *Gateway) createJob(ctx context.Context, jobURL *string, description string) (*model.Job, *model.Process, error) {
	proc := &model.Process{
		ID:     uuid.NewString(),
		Desc:   "job scrape",
		Status: model.ProcessInitiated,
	}
	job := &model.Job{
		ID:          uuid.NewString(),
		URL:         jobURL,
		Title:       model.UnderExtraction,
		Company:     model.UnderExtraction,
		Description: description,
		Status:      model.JobProcessing,
	}
	if err := g.store.CreateJobWithProcess(ctx, job, proc); err != nil {
		return nil, nil, err
	}

	if err := g.emitTriggered(ctx, job, proc.ID, description); err != nil {
		return nil, nil, err
	}
	return job, proc, nil
}

func (g *Gateway) retryJob(ctx context.Context, job *model.Job) (*model.Job, *model.Process, error) {
	proc := &model.Process{
		ID:     uuid.NewString(),
		Desc:   "job scrape retry",
		Status: model.ProcessInitiated,
	}
	updated, err := g.store.ResetJobForRetry(ctx, job.ID, proc)
	if err != nil {
		return nil, nil, err
	}

	if err := g.emitTriggered(ctx, updated, proc.ID, updated.Description); err != nil {
		return nil, nil, err
	}
	return updated, proc, nil
}

func (g *Gateway) emitTriggered(ctx context.Context, job *model.Job, processID, description string) error {
	ev := bus.JobScrapeTriggered{
		JobID:       job.ID,
		ProcessID:   processID,
		Description: description,
		TriggeredAt: g.now().UTC(),
	}
	if job.URL != nil {
		ev.JobURL = *job.URL
	}
	if err := g.pub.Publish(ctx, bus.TopicJobScrapeTriggered, job.ID, ev); err != nil {
		return fmt.Errorf("publish scrape trigger: %w", err)
	}
	return nil
}

// parseJobURL 判断目标是否为 http(s) URL，返回规整后的地址。
func parseJobURL(target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

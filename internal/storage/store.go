package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Store 封装 SQLite 数据库访问，负责职位、简历、段落与技能的读写。
type Store struct {
	db *gorm.DB
}

// NewStore 创建 Store 并自动迁移数据表。
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Job{}, &model.Process{},
		&model.User{}, &model.Resume{}, &model.ResumeProcess{},
		&model.ResumeSection{}, &model.Skill{},
		&model.Education{}, &model.Experience{}, &model.Proficiency{},
		&model.Project{}, &model.ProjectSkill{}, &model.Certification{},
		&model.SearchDocument{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}

	// 每个用户至多一份 base 简历，用部分唯一索引兜底
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_user_base ON resumes(user_id) WHERE base = 1`).Error; err != nil {
		return nil, fmt.Errorf("create base index: %w", err)
	}

	return &Store{db: db}, nil
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// CreateJobWithProcess 在同一事务内创建进度记录与职位。
func (s *Store) CreateJobWithProcess(ctx context.Context, job *model.Job, proc *model.Process) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(proc).Error; err != nil {
			return fmt.Errorf("create process: %w", err)
		}
		job.ProcessID = proc.ID
		if err := tx.Create(job).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Wrap(apperr.AlreadyExists, err, "job url already exists")
			}
			return fmt.Errorf("create job: %w", err)
		}
		return nil
	})
}

// GetJob 按 ID 获取职位。
func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "job %s not found", id)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// GetJobByURL 按 URL 获取职位，未命中返回 NotFound。
func (s *Store) GetJobByURL(ctx context.Context, url string) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, "url = ?", url).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "no job for url")
		}
		return nil, fmt.Errorf("get job by url: %w", err)
	}
	return &job, nil
}

// ResetJobForRetry 为失败职位创建新进度记录并重置为 Processing。
// 仅当职位当前为 Failure 时生效，避免并发重试互相覆盖。
func (s *Store) ResetJobForRetry(ctx context.Context, jobID string, proc *model.Process) (*model.Job, error) {
	var job model.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(proc).Error; err != nil {
			return fmt.Errorf("create process: %w", err)
		}
		res := tx.Model(&model.Job{}).
			Where("id = ? AND status = ?", jobID, model.JobFailure).
			Updates(map[string]any{
				"status":     model.JobProcessing,
				"process_id": proc.ID,
				"title":      model.UnderExtraction,
				"company":    model.UnderExtraction,
			})
		if res.Error != nil {
			return fmt.Errorf("reset job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.FailedPrecondition, "job %s is not in failure state", jobID)
		}
		return tx.First(&job, "id = ?", jobID).Error
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// SaveJob 全量保存职位字段，抓取器回写提取结果时使用。
func (s *Store) SaveJob(ctx context.Context, job *model.Job) error {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// GetProcess 获取职位进度记录。
func (s *Store) GetProcess(ctx context.Context, id string) (*model.Process, error) {
	var proc model.Process
	if err := s.db.WithContext(ctx).First(&proc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "process %s not found", id)
		}
		return nil, fmt.Errorf("get process: %w", err)
	}
	return &proc, nil
}

// UpdateProcessStatus 更新职位进度状态与详情。
func (s *Store) UpdateProcessStatus(ctx context.Context, id string, status model.ProcessStatus, details string) error {
	res := s.db.WithContext(ctx).Model(&model.Process{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "status_details": details})
	if res.Error != nil {
		return fmt.Errorf("update process status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "process %s not found", id)
	}
	return nil
}

// GetResumeProcess 获取简历进度记录。
func (s *Store) GetResumeProcess(ctx context.Context, id string) (*model.ResumeProcess, error) {
	var proc model.ResumeProcess
	if err := s.db.WithContext(ctx).First(&proc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "resume process %s not found", id)
		}
		return nil, fmt.Errorf("get resume process: %w", err)
	}
	return &proc, nil
}

// UpdateResumeProcessStatus 更新简历进度状态与详情。
func (s *Store) UpdateResumeProcessStatus(ctx context.Context, id string, status model.ProcessStatus, details string) error {
	res := s.db.WithContext(ctx).Model(&model.ResumeProcess{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "status_details": details})
	if res.Error != nil {
		return fmt.Errorf("update resume process status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "resume process %s not found", id)
	}
	return nil
}

// CreateUser 创建用户。
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Wrap(apperr.AlreadyExists, err, "user email already exists")
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser 按 ID 获取用户。
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user %s not found", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// CreateResumeWithProcess 在同一事务内创建简历进度记录与简历。
func (s *Store) CreateResumeWithProcess(ctx context.Context, resume *model.Resume, proc *model.ResumeProcess) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(proc).Error; err != nil {
			return fmt.Errorf("create resume process: %w", err)
		}
		resume.ProcessID = proc.ID
		if err := tx.Create(resume).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Wrap(apperr.AlreadyExists, err, "resume for user/job already exists")
			}
			return fmt.Errorf("create resume: %w", err)
		}
		return nil
	})
}

// GetResume 按 ID 获取简历。
func (s *Store) GetResume(ctx context.Context, id string) (*model.Resume, error) {
	var resume model.Resume
	if err := s.db.WithContext(ctx).First(&resume, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "resume %s not found", id)
		}
		return nil, fmt.Errorf("get resume: %w", err)
	}
	return &resume, nil
}

// GetResumeByUserJob 获取用户针对某职位的定制简历。
func (s *Store) GetResumeByUserJob(ctx context.Context, userID, jobID string) (*model.Resume, error) {
	var resume model.Resume
	if err := s.db.WithContext(ctx).First(&resume, "user_id = ? AND job_id = ?", userID, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "no resume for user %s and job %s", userID, jobID)
		}
		return nil, fmt.Errorf("get resume by user/job: %w", err)
	}
	return &resume, nil
}

// GetBaseResume 获取用户的基础简历。
func (s *Store) GetBaseResume(ctx context.Context, userID string) (*model.Resume, error) {
	var resume model.Resume
	if err := s.db.WithContext(ctx).First(&resume, "user_id = ? AND base = ?", userID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user %s has no base resume", userID)
		}
		return nil, fmt.Errorf("get base resume: %w", err)
	}
	return &resume, nil
}

// EnsureBaseResume 确保用户拥有唯一基础简历，已存在则幂等返回。
// 并发创建由部分唯一索引兜底，冲突后重读。
func (s *Store) EnsureBaseResume(ctx context.Context, userID string) (*model.Resume, error) {
	existing, err := s.GetBaseResume(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !apperr.IsKind(err, apperr.NotFound) {
		return nil, err
	}

	resume := &model.Resume{
		ID:     uuid.NewString(),
		UserID: userID,
		Base:   true,
		Status: model.ResumeManual,
	}
	if err := s.db.WithContext(ctx).Create(resume).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.GetBaseResume(ctx, userID)
		}
		return nil, fmt.Errorf("create base resume: %w", err)
	}
	return resume, nil
}

// AttachResumeProcess 为重试创建新的进度记录并把简历重置为 Processing。
func (s *Store) AttachResumeProcess(ctx context.Context, resumeID string, proc *model.ResumeProcess) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(proc).Error; err != nil {
			return fmt.Errorf("create resume process: %w", err)
		}
		res := tx.Model(&model.Resume{}).Where("id = ?", resumeID).
			Updates(map[string]any{"process_id": proc.ID, "status": model.ResumeProcessing})
		if res.Error != nil {
			return fmt.Errorf("attach resume process: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.NotFound, "resume %s not found", resumeID)
		}
		return nil
	})
}

// TransitionResumeStatus 乐观守卫的状态迁移：仅当当前状态匹配 from 时生效。
// 返回是否实际迁移，重复投递的事件据此安全跳过。
func (s *Store) TransitionResumeStatus(ctx context.Context, id string, from, to model.ResumeStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Resume{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("transition resume status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetResumeThumbnail 回写缩略图路径。
func (s *Store) SetResumeThumbnail(ctx context.Context, id, path string) error {
	res := s.db.WithContext(ctx).Model(&model.Resume{}).Where("id = ?", id).Update("thumbnail", path)
	if res.Error != nil {
		return fmt.Errorf("set resume thumbnail: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "resume %s not found", id)
	}
	return nil
}

// ListProcessingResumesByJob 返回等待某职位完成的全部 Processing 简历。
func (s *Store) ListProcessingResumesByJob(ctx context.Context, jobID string) ([]model.Resume, error) {
	var resumes []model.Resume
	if err := s.db.WithContext(ctx).
		Where("job_id = ? AND status = ?", jobID, model.ResumeProcessing).
		Order("created_at ASC").
		Find(&resumes).Error; err != nil {
		return nil, fmt.Errorf("list processing resumes: %w", err)
	}
	return resumes, nil
}

// GetResumeWithSections 返回简历及其有序段落视图。
func (s *Store) GetResumeWithSections(ctx context.Context, id string) (*model.ResumeWithSections, error) {
	resume, err := s.GetResume(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := s.ListSections(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ResumeWithSections{Resume: *resume, Sections: sections}, nil
}

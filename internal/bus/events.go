package bus

import (
	"time"

	"gorm.io/datatypes"
)

// ChangeType 标识 ResumeUpdated 事件的变更种类。
type ChangeType string

const (
	ChangeSectionAdded     ChangeType = "section_added"
	ChangeSectionRemoved   ChangeType = "section_removed"
	ChangeSectionUpdated   ChangeType = "section_updated"
	ChangeSectionReordered ChangeType = "section_reordered"
	ChangeBulkReplace      ChangeType = "bulk_replace"
	ChangeResumeDeleted    ChangeType = "resume_deleted"
	ChangeThumbnailUpdated ChangeType = "thumbnail_updated"
)

// JobScrapeTriggered 抓取被触发，由职位获取网关发布。
type JobScrapeTriggered struct {
	JobID       string    `json:"job_id"`
	ProcessID   string    `json:"process_id"`
	JobURL      string    `json:"job_url,omitempty"`
	Description string    `json:"description,omitempty"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// JobScrapeSuccess 抓取成功，由抓取协作方发布。
type JobScrapeSuccess struct {
	JobID  string `json:"job_id"`
	JobURL string `json:"job_url,omitempty"`
}

// JobScrapeFailed 抓取失败。
type JobScrapeFailed struct {
	JobID        string `json:"job_id"`
	ErrorMessage string `json:"error_message"`
}

// ResumeTailoringTriggered 简历定制被触发，由编排器或 saga 发布。
type ResumeTailoringTriggered struct {
	ResumeID    string    `json:"resume_id"`
	JobID       string    `json:"job_id"`
	ProcessID   string    `json:"process_id"`
	UserID      string    `json:"user_id"`
	JobURL      string    `json:"job_url,omitempty"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// ResumeTailoringSuccess 简历定制完成。
type ResumeTailoringSuccess struct {
	ResumeID    string    `json:"resume_id"`
	JobID       string    `json:"job_id"`
	ProcessID   string    `json:"process_id"`
	UserID      string    `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// ResumeTailoringFailed 简历定制失败。
type ResumeTailoringFailed struct {
	ResumeID     string    `json:"resume_id"`
	JobID        string    `json:"job_id"`
	ProcessID    string    `json:"process_id"`
	UserID       string    `json:"user_id"`
	ErrorMessage string    `json:"error_message"`
	FailedAt     time.Time `json:"failed_at"`
}

// ResumeUpdated 简历内容变更的统一扇出信号，
// 缩略图与检索消费者据此刷新。
type ResumeUpdated struct {
	ResumeID      string            `json:"resume_id"`
	UserID        string            `json:"user_id"`
	ChangeType    ChangeType        `json:"change_type"`
	SectionType   string            `json:"section_type,omitempty"`
	SectionID     string            `json:"section_id,omitempty"`
	ChangedFields datatypes.JSONMap `json:"changed_fields,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

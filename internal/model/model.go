package model

import (
	"time"

	"gorm.io/datatypes"
)

// UnderExtraction 占位标题/公司名，抓取完成前与重试时使用。
const UnderExtraction = "<UNDER_EXTRACTION>"

// JobStatus 职位抓取生命周期状态。
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobSuccess    JobStatus = "success"
	JobFailure    JobStatus = "failure"
)

// ProcessStatus 通用进度记录状态。
type ProcessStatus string

const (
	ProcessInitiated ProcessStatus = "initiated"
	ProcessAccepted  ProcessStatus = "accepted"
	ProcessRejected  ProcessStatus = "rejected"
	ProcessSuccess   ProcessStatus = "success"
	ProcessFailure   ProcessStatus = "failure"
	ProcessOther     ProcessStatus = "other"
)

// ResumeStatus 简历定制生命周期状态。
type ResumeStatus string

const (
	ResumeProcessing ResumeStatus = "processing"
	ResumeSuccess    ResumeStatus = "success"
	ResumeFailure    ResumeStatus = "failure"
	ResumeManual     ResumeStatus = "manual"
	ResumeOther      ResumeStatus = "other"
)

// Job 表示一个待定制的职位
// - URL: 抓取来源，存在时全局唯一，描述模式下为空
// - Metadata: 抓取器提取的附加字段，键值对
// - ProcessID: 当前抓取进度记录
type Job struct {
	ID          string            `gorm:"primaryKey" json:"id"`
	URL         *string           `gorm:"uniqueIndex" json:"url,omitempty"`
	Title       string            `json:"title"`
	Company     string            `json:"company"`
	Description string            `json:"description"`
	Status      JobStatus         `json:"status"`
	ProcessID   string            `json:"process_id"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Process 职位抓取的进度跟踪记录。
type Process struct {
	ID            string        `gorm:"primaryKey" json:"id"`
	Desc          string        `json:"desc"`
	Status        ProcessStatus `json:"status"`
	StatusDetails string        `json:"status_details"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ResumeProcess 简历定制操作的进度跟踪记录，与 Process 同构但独立建表。
type ResumeProcess struct {
	ID            string        `gorm:"primaryKey" json:"id"`
	Desc          string        `json:"desc"`
	Status        ProcessStatus `json:"status"`
	StatusDetails string        `json:"status_details"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// User 简历归属用户。
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resume 表示一份简历
// - Base: 每个用户至多一份基础简历
// - JobID: 非空时指向定制目标职位，(UserID, JobID) 唯一
// - ProcessID: 当前定制操作的 ResumeProcess
type Resume struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	UserID    string       `gorm:"index;uniqueIndex:uniq_user_job" json:"user_id"`
	JobID     *string      `gorm:"uniqueIndex:uniq_user_job" json:"job_id,omitempty"`
	Base      bool         `json:"base"`
	Status    ResumeStatus `json:"status"`
	ProcessID string       `json:"process_id"`
	Thumbnail string       `json:"thumbnail,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SectionType 标记段落类型，决定载荷落在哪张表。
type SectionType string

const (
	SectionEducation     SectionType = "education"
	SectionExperience    SectionType = "experience"
	SectionSkill         SectionType = "skill"
	SectionProject       SectionType = "project"
	SectionCertification SectionType = "certification"
)

// SectionTypes 所有合法段落类型。
var SectionTypes = []SectionType{SectionEducation, SectionExperience, SectionSkill, SectionProject, SectionCertification}

// ResumeSection 简历中的一个有序槽位，载荷按类型落在专表。
// (ResumeID, Position) 唯一且稠密，0 起始。
type ResumeSection struct {
	ID        string      `gorm:"primaryKey" json:"id"`
	ResumeID  string      `gorm:"index;uniqueIndex:uniq_resume_pos" json:"resume_id"`
	Position  int         `gorm:"column:position;uniqueIndex:uniq_resume_pos" json:"index"`
	Type      SectionType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Skill 全局共享技能条目，(Category, Name) 唯一，不归属任何简历。
type Skill struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex:uniq_cat_name" json:"name"`
	Category  string    `gorm:"uniqueIndex:uniq_cat_name" json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Education 教育经历载荷。
type Education struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	ResumeSectionID string    `gorm:"uniqueIndex" json:"resume_section_id"`
	School          string    `json:"school"`
	Degree          string    `json:"degree"`
	Field           string    `json:"field,omitempty"`
	CountryCode     string    `json:"country_code,omitempty"`
	StartMonth      int       `json:"start_month"`
	StartYear       int       `json:"start_year"`
	EndMonth        *int      `json:"end_month,omitempty"`
	EndYear         *int      `json:"end_year,omitempty"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Experience 工作经历载荷。
type Experience struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	ResumeSectionID string    `gorm:"uniqueIndex" json:"resume_section_id"`
	Company         string    `json:"company"`
	Title           string    `json:"title"`
	CountryCode     string    `json:"country_code,omitempty"`
	StartMonth      int       `json:"start_month"`
	StartYear       int       `json:"start_year"`
	EndMonth        *int      `json:"end_month,omitempty"`
	EndYear         *int      `json:"end_year,omitempty"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Proficiency 技能段落与共享技能的关联，可携带熟练度。
type Proficiency struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	ResumeSectionID string    `gorm:"index" json:"resume_section_id"`
	SkillID         string    `gorm:"index" json:"skill_id"`
	Level           string    `json:"level,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Project 项目经历载荷。
type Project struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	ResumeSectionID string    `gorm:"uniqueIndex" json:"resume_section_id"`
	Name            string    `json:"name"`
	URL             string    `json:"url,omitempty"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ProjectSkill 项目与共享技能的多对多关联。
type ProjectSkill struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ProjectID string    `gorm:"index" json:"project_id"`
	SkillID   string    `gorm:"index" json:"skill_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Certification 证书载荷。
type Certification struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	ResumeSectionID string    `gorm:"uniqueIndex" json:"resume_section_id"`
	Name            string    `json:"name"`
	Issuer          string    `json:"issuer"`
	IssueYear       *int      `json:"issue_year,omitempty"`
	URL             string    `json:"url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SearchDocument 简历的扁平化检索文档，由搜索消费者维护。
type SearchDocument struct {
	ResumeID  string    `gorm:"primaryKey" json:"resume_id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

package model

// SkillRef 以 (Name, Category) 引用一个共享技能。
type SkillRef struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// SkillEntry 技能段落中的一条技能及可选熟练度。
type SkillEntry struct {
	SkillRef
	Level string `json:"level,omitempty"`
}

// EducationInput 教育段落写入载荷。
type EducationInput struct {
	School      string `json:"school"`
	Degree      string `json:"degree"`
	Field       string `json:"field,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	StartMonth  int    `json:"start_month"`
	StartYear   int    `json:"start_year"`
	EndMonth    *int   `json:"end_month,omitempty"`
	EndYear     *int   `json:"end_year,omitempty"`
	Description string `json:"description,omitempty"`
}

// ExperienceInput 工作经历段落写入载荷。
type ExperienceInput struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	CountryCode string `json:"country_code,omitempty"`
	StartMonth  int    `json:"start_month"`
	StartYear   int    `json:"start_year"`
	EndMonth    *int   `json:"end_month,omitempty"`
	EndYear     *int   `json:"end_year,omitempty"`
	Description string `json:"description,omitempty"`
}

// SkillGroupInput 技能段落写入载荷。
type SkillGroupInput struct {
	Skills []SkillEntry `json:"skills"`
}

// ProjectInput 项目段落写入载荷。
type ProjectInput struct {
	Name        string     `json:"name"`
	URL         string     `json:"url,omitempty"`
	Description string     `json:"description,omitempty"`
	SkillsUsed  []SkillRef `json:"skills_used,omitempty"`
}

// CertificationInput 证书段落写入载荷。
type CertificationInput struct {
	Name      string `json:"name"`
	Issuer    string `json:"issuer"`
	IssueYear *int   `json:"issue_year,omitempty"`
	URL       string `json:"url,omitempty"`
}

// SectionInput 按 Type 选择一个载荷变体的段落写入请求。
type SectionInput struct {
	Type          SectionType         `json:"type"`
	Education     *EducationInput     `json:"education,omitempty"`
	Experience    *ExperienceInput    `json:"experience,omitempty"`
	SkillGroup    *SkillGroupInput    `json:"skill_group,omitempty"`
	Project       *ProjectInput       `json:"project,omitempty"`
	Certification *CertificationInput `json:"certification,omitempty"`
}

// SectionView 读取简历时返回的段落视图，载荷按类型填充其一。
type SectionView struct {
	ID            string         `json:"id"`
	Position      int            `json:"index"`
	Type          SectionType    `json:"type"`
	Education     *Education     `json:"education,omitempty"`
	Experience    *Experience    `json:"experience,omitempty"`
	Skills        []SkillView    `json:"skills,omitempty"`
	Project       *Project       `json:"project,omitempty"`
	ProjectSkills []SkillRef     `json:"project_skills,omitempty"`
	Certification *Certification `json:"certification,omitempty"`
}

// SkillView 技能段落视图中的一条技能。
type SkillView struct {
	SkillRef
	SkillID string `json:"skill_id"`
	Level   string `json:"level,omitempty"`
}

// ResumeWithSections 简历及其有序段落。
type ResumeWithSections struct {
	Resume   Resume        `json:"resume"`
	Sections []SectionView `json:"sections"`
}

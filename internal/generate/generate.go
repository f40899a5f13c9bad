package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resume-tailor/internal/model"
)

// Store 抽象生成器所需的读取接口：定制以用户的基础简历为素材。
type Store interface {
	GetBaseResume(ctx context.Context, userID string) (*model.Resume, error)
	ListSections(ctx context.Context, resumeID string) ([]model.SectionView, error)
}

// LLMClient 抽象大模型调用，便于测试注入。
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMGenerator 用大模型把基础简历改写为贴合目标职位的段落组。
type LLMGenerator struct {
	store Store
	llm   LLMClient
}

// NewLLMGenerator 创建生成器。
func NewLLMGenerator(store Store, llm LLMClient) *LLMGenerator {
	return &LLMGenerator{store: store, llm: llm}
}

// Generate 读取基础简历段落，请求模型输出整组新段落。
func (g *LLMGenerator) Generate(ctx context.Context, resume model.Resume, job model.Job) ([]model.SectionInput, error) {
	base, err := g.loadBaseSections(ctx, resume.UserID)
	if err != nil {
		return nil, err
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("marshal base sections: %w", err)
	}

	prompt := buildPrompt(job, string(baseJSON))
	respText, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	var inputs []model.SectionInput
	if err := json.Unmarshal([]byte(stripFence(respText)), &inputs); err != nil {
		return nil, fmt.Errorf("parse llm sections: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("llm returned no sections")
	}
	return inputs, nil
}

func (g *LLMGenerator) loadBaseSections(ctx context.Context, userID string) ([]model.SectionInput, error) {
	base, err := g.store.GetBaseResume(ctx, userID)
	if err != nil {
		return nil, err
	}
	views, err := g.store.ListSections(ctx, base.ID)
	if err != nil {
		return nil, err
	}
	return ViewsToInputs(views), nil
}

func buildPrompt(job model.Job, baseJSON string) string {
	var b strings.Builder
	b.WriteString("Rewrite the resume sections below so they target this job posting.\n")
	fmt.Fprintf(&b, "Job title: %s\nCompany: %s\nDescription:\n%s\n", job.Title, job.Company, job.Description)
	b.WriteString("Current sections (JSON):\n")
	b.WriteString(baseJSON)
	b.WriteString("\n输出严格 JSON 数组，元素结构与输入段落一致：" +
		`[{"type":"education|experience|skill|project|certification", ...载荷字段}]，不要输出任何其它文本。`)
	return b.String()
}

// stripFence 去掉模型偶尔包裹的 markdown 代码栅栏。
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// PassthroughGenerator 无模型可用时的退路：原样复用基础简历段落。
type PassthroughGenerator struct {
	store Store
}

// NewPassthroughGenerator 创建直通生成器。
func NewPassthroughGenerator(store Store) *PassthroughGenerator {
	return &PassthroughGenerator{store: store}
}

// Generate 直接返回基础简历的段落副本。
func (g *PassthroughGenerator) Generate(ctx context.Context, resume model.Resume, job model.Job) ([]model.SectionInput, error) {
	base, err := g.store.GetBaseResume(ctx, resume.UserID)
	if err != nil {
		return nil, err
	}
	views, err := g.store.ListSections(ctx, base.ID)
	if err != nil {
		return nil, err
	}
	return ViewsToInputs(views), nil
}

// ViewsToInputs 把段落视图转换回写入载荷，技能引用按名称与分类还原。
func ViewsToInputs(views []model.SectionView) []model.SectionInput {
	inputs := make([]model.SectionInput, 0, len(views))
	for _, v := range views {
		in := model.SectionInput{Type: v.Type}
		switch v.Type {
		case model.SectionEducation:
			if v.Education == nil {
				continue
			}
			in.Education = &model.EducationInput{
				School:      v.Education.School,
				Degree:      v.Education.Degree,
				Field:       v.Education.Field,
				CountryCode: v.Education.CountryCode,
				StartMonth:  v.Education.StartMonth,
				StartYear:   v.Education.StartYear,
				EndMonth:    v.Education.EndMonth,
				EndYear:     v.Education.EndYear,
				Description: v.Education.Description,
			}
		case model.SectionExperience:
			if v.Experience == nil {
				continue
			}
			in.Experience = &model.ExperienceInput{
				Company:     v.Experience.Company,
				Title:       v.Experience.Title,
				CountryCode: v.Experience.CountryCode,
				StartMonth:  v.Experience.StartMonth,
				StartYear:   v.Experience.StartYear,
				EndMonth:    v.Experience.EndMonth,
				EndYear:     v.Experience.EndYear,
				Description: v.Experience.Description,
			}
		case model.SectionSkill:
			group := &model.SkillGroupInput{}
			for _, sk := range v.Skills {
				group.Skills = append(group.Skills, model.SkillEntry{SkillRef: sk.SkillRef, Level: sk.Level})
			}
			if len(group.Skills) == 0 {
				continue
			}
			in.SkillGroup = group
		case model.SectionProject:
			if v.Project == nil {
				continue
			}
			in.Project = &model.ProjectInput{
				Name:        v.Project.Name,
				URL:         v.Project.URL,
				Description: v.Project.Description,
				SkillsUsed:  append([]model.SkillRef(nil), v.ProjectSkills...),
			}
		case model.SectionCertification:
			if v.Certification == nil {
				continue
			}
			in.Certification = &model.CertificationInput{
				Name:      v.Certification.Name,
				Issuer:    v.Certification.Issuer,
				IssueYear: v.Certification.IssueYear,
				URL:       v.Certification.URL,
			}
		}
		inputs = append(inputs, in)
	}
	return inputs
}

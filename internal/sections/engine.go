package sections

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/country"
	"resume-tailor/internal/model"
	"resume-tailor/internal/storage"

	"github.com/google/uuid"
)

// Store 抽象段落替换所需的存储接口，便于测试替换。
type Store interface {
	GetResume(ctx context.Context, id string) (*model.Resume, error)
	GetResumeWithSections(ctx context.Context, id string) (*model.ResumeWithSections, error)
	ListSectionIDs(ctx context.Context, resumeID string) ([]string, error)
	ReplaceAllSections(ctx context.Context, resumeID string, writes []storage.SectionWrite) error
	ReindexSections(ctx context.Context, resumeID string, orderedIDs []string) error
	ResolveSkills(ctx context.Context, refs []model.SkillRef) (map[model.SkillRef]string, error)
}

// Engine 段落替换引擎：三阶段完成整组段落的全有或全无重写。
// 阶段一校验全部载荷，阶段二解析共享引用（技能、国家），
// 阶段三在单事务内删旧插新，保持事务尽量短。
type Engine struct {
	store         Store
	lookupCountry func(code string) (country.Country, error)
}

// NewEngine 创建替换引擎。
func NewEngine(store Store) *Engine {
	return &Engine{store: store, lookupCountry: country.Lookup}
}

// ReplaceSections 用给定有序段落整组替换简历内容。
// 任一段落非法则整体失败且不产生任何写入。
func (e *Engine) ReplaceSections(ctx context.Context, resumeID string, inputs []model.SectionInput) (*model.ResumeWithSections, error) {
	if _, err := e.store.GetResume(ctx, resumeID); err != nil {
		return nil, err
	}

	// 阶段一：事务外全量校验
	for i, in := range inputs {
		if err := validateSection(i, in); err != nil {
			return nil, err
		}
	}

	// 阶段二：解析共享引用
	skillIDs, err := e.resolveReferences(ctx, inputs)
	if err != nil {
		return nil, err
	}

	// 阶段三：组装行并原子替换
	writes := make([]storage.SectionWrite, 0, len(inputs))
	for i, in := range inputs {
		writes = append(writes, buildWrite(resumeID, i, in, skillIDs))
	}
	if err := e.store.ReplaceAllSections(ctx, resumeID, writes); err != nil {
		return nil, err
	}

	return e.store.GetResumeWithSections(ctx, resumeID)
}

// Rearrange 仅重排现有段落顺序，id 列表必须恰为当前段落的一个排列。
func (e *Engine) Rearrange(ctx context.Context, resumeID string, orderedIDs []string) (*model.ResumeWithSections, error) {
	current, err := e.store.ListSectionIDs(ctx, resumeID)
	if err != nil {
		return nil, err
	}

	if err := checkPermutation(current, orderedIDs); err != nil {
		return nil, err
	}

	if err := e.store.ReindexSections(ctx, resumeID, orderedIDs); err != nil {
		return nil, err
	}
	return e.store.GetResumeWithSections(ctx, resumeID)
}

// checkPermutation 校验 supplied 恰为 current 的一个排列，
// 违例时列出重复、缺失与不属于该简历的 id。
func checkPermutation(current, supplied []string) error {
	currentSet := make(map[string]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}

	var duplicates, foreign []string
	seen := make(map[string]struct{}, len(supplied))
	for _, id := range supplied {
		if _, ok := seen[id]; ok {
			duplicates = append(duplicates, id)
			continue
		}
		seen[id] = struct{}{}
		if _, ok := currentSet[id]; !ok {
			foreign = append(foreign, id)
		}
	}

	var missing []string
	for _, id := range current {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(duplicates) == 0 && len(foreign) == 0 && len(missing) == 0 {
		return nil
	}

	var parts []string
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		parts = append(parts, "duplicate ids: "+strings.Join(duplicates, ", "))
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		parts = append(parts, "missing ids: "+strings.Join(missing, ", "))
	}
	if len(foreign) > 0 {
		sort.Strings(foreign)
		parts = append(parts, "unknown ids: "+strings.Join(foreign, ", "))
	}
	return apperr.New(apperr.InvalidArgument, "section ids are not a permutation: %s", strings.Join(parts, "; "))
}

// resolveReferences 收集并去重全部技能与国家引用，批量解析。
func (e *Engine) resolveReferences(ctx context.Context, inputs []model.SectionInput) (map[model.SkillRef]string, error) {
	var refs []model.SkillRef
	countries := make(map[string]struct{})
	for _, in := range inputs {
		switch in.Type {
		case model.SectionSkill:
			for _, entry := range in.SkillGroup.Skills {
				refs = append(refs, entry.SkillRef)
			}
		case model.SectionProject:
			refs = append(refs, in.Project.SkillsUsed...)
		case model.SectionEducation:
			if code := strings.TrimSpace(in.Education.CountryCode); code != "" {
				countries[code] = struct{}{}
			}
		case model.SectionExperience:
			if code := strings.TrimSpace(in.Experience.CountryCode); code != "" {
				countries[code] = struct{}{}
			}
		}
	}

	for code := range countries {
		if _, err := e.lookupCountry(code); err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				return nil, apperr.New(apperr.InvalidArgument, "unknown country code %q", code)
			}
			return nil, fmt.Errorf("lookup country %q: %w", code, err)
		}
	}

	return e.store.ResolveSkills(ctx, refs)
}

// buildWrite 组装一个段落及其载荷行，位置取调用方给定的顺序。
func buildWrite(resumeID string, position int, in model.SectionInput, skillIDs map[model.SkillRef]string) storage.SectionWrite {
	section := model.ResumeSection{
		ID:       uuid.NewString(),
		ResumeID: resumeID,
		Position: position,
		Type:     in.Type,
	}
	w := storage.SectionWrite{Section: section}

	switch in.Type {
	case model.SectionEducation:
		edu := *in.Education
		w.Education = &model.Education{
			ID:              uuid.NewString(),
			ResumeSectionID: section.ID,
			School:          edu.School,
			Degree:          edu.Degree,
			Field:           edu.Field,
			CountryCode:     strings.ToUpper(strings.TrimSpace(edu.CountryCode)),
			StartMonth:      edu.StartMonth,
			StartYear:       edu.StartYear,
			EndMonth:        edu.EndMonth,
			EndYear:         edu.EndYear,
			Description:     edu.Description,
		}
	case model.SectionExperience:
		exp := *in.Experience
		w.Experience = &model.Experience{
			ID:              uuid.NewString(),
			ResumeSectionID: section.ID,
			Company:         exp.Company,
			Title:           exp.Title,
			CountryCode:     strings.ToUpper(strings.TrimSpace(exp.CountryCode)),
			StartMonth:      exp.StartMonth,
			StartYear:       exp.StartYear,
			EndMonth:        exp.EndMonth,
			EndYear:         exp.EndYear,
			Description:     exp.Description,
		}
	case model.SectionSkill:
		for _, entry := range in.SkillGroup.Skills {
			w.Proficiencies = append(w.Proficiencies, model.Proficiency{
				ID:              uuid.NewString(),
				ResumeSectionID: section.ID,
				SkillID:         skillIDs[storage.NormalizeSkillRef(entry.SkillRef)],
				Level:           entry.Level,
			})
		}
	case model.SectionProject:
		proj := *in.Project
		w.Project = &model.Project{
			ID:              uuid.NewString(),
			ResumeSectionID: section.ID,
			Name:            proj.Name,
			URL:             proj.URL,
			Description:     proj.Description,
		}
		for _, ref := range proj.SkillsUsed {
			w.ProjectSkills = append(w.ProjectSkills, model.ProjectSkill{
				ID:        uuid.NewString(),
				ProjectID: w.Project.ID,
				SkillID:   skillIDs[storage.NormalizeSkillRef(ref)],
			})
		}
	case model.SectionCertification:
		cert := *in.Certification
		w.Certification = &model.Certification{
			ID:              uuid.NewString(),
			ResumeSectionID: section.ID,
			Name:            cert.Name,
			Issuer:          cert.Issuer,
			IssueYear:       cert.IssueYear,
			URL:             cert.URL,
		}
	}
	return w
}

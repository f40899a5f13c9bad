package storage

import (
	"context"
	"fmt"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/model"

	"gorm.io/gorm"
)

// SectionWrite 一个待写入段落及其类型化载荷，替换引擎在事务外组装。
type SectionWrite struct {
	Section       model.ResumeSection
	Education     *model.Education
	Experience    *model.Experience
	Proficiencies []model.Proficiency
	Project       *model.Project
	ProjectSkills []model.ProjectSkill
	Certification *model.Certification
}

// ListSectionIDs 返回简历当前段落 ID，按位置排序。
func (s *Store) ListSectionIDs(ctx context.Context, resumeID string) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&model.ResumeSection{}).
		Where("resume_id = ?", resumeID).
		Order("position ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list section ids: %w", err)
	}
	return ids, nil
}

// ListSections 返回简历的有序段落视图，批量加载各类载荷。
func (s *Store) ListSections(ctx context.Context, resumeID string) ([]model.SectionView, error) {
	var sections []model.ResumeSection
	if err := s.db.WithContext(ctx).
		Where("resume_id = ?", resumeID).
		Order("position ASC").
		Find(&sections).Error; err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	if len(sections) == 0 {
		return []model.SectionView{}, nil
	}

	ids := make([]string, 0, len(sections))
	for _, sec := range sections {
		ids = append(ids, sec.ID)
	}

	db := s.db.WithContext(ctx)

	var educations []model.Education
	if err := db.Where("resume_section_id IN ?", ids).Find(&educations).Error; err != nil {
		return nil, fmt.Errorf("load educations: %w", err)
	}
	var experiences []model.Experience
	if err := db.Where("resume_section_id IN ?", ids).Find(&experiences).Error; err != nil {
		return nil, fmt.Errorf("load experiences: %w", err)
	}
	var projects []model.Project
	if err := db.Where("resume_section_id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	var certifications []model.Certification
	if err := db.Where("resume_section_id IN ?", ids).Find(&certifications).Error; err != nil {
		return nil, fmt.Errorf("load certifications: %w", err)
	}
	var proficiencies []model.Proficiency
	if err := db.Where("resume_section_id IN ?", ids).Find(&proficiencies).Error; err != nil {
		return nil, fmt.Errorf("load proficiencies: %w", err)
	}

	projectIDs := make([]string, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}
	var projectSkills []model.ProjectSkill
	if len(projectIDs) > 0 {
		if err := db.Where("project_id IN ?", projectIDs).Find(&projectSkills).Error; err != nil {
			return nil, fmt.Errorf("load project skills: %w", err)
		}
	}

	skillIDs := make([]string, 0, len(proficiencies)+len(projectSkills))
	for _, p := range proficiencies {
		skillIDs = append(skillIDs, p.SkillID)
	}
	for _, ps := range projectSkills {
		skillIDs = append(skillIDs, ps.SkillID)
	}
	skillByID := make(map[string]model.Skill)
	if len(skillIDs) > 0 {
		var skills []model.Skill
		if err := db.Where("id IN ?", skillIDs).Find(&skills).Error; err != nil {
			return nil, fmt.Errorf("load skills: %w", err)
		}
		for _, sk := range skills {
			skillByID[sk.ID] = sk
		}
	}

	eduBySection := make(map[string]*model.Education, len(educations))
	for i := range educations {
		eduBySection[educations[i].ResumeSectionID] = &educations[i]
	}
	expBySection := make(map[string]*model.Experience, len(experiences))
	for i := range experiences {
		expBySection[experiences[i].ResumeSectionID] = &experiences[i]
	}
	projBySection := make(map[string]*model.Project, len(projects))
	for i := range projects {
		projBySection[projects[i].ResumeSectionID] = &projects[i]
	}
	certBySection := make(map[string]*model.Certification, len(certifications))
	for i := range certifications {
		certBySection[certifications[i].ResumeSectionID] = &certifications[i]
	}
	profsBySection := make(map[string][]model.Proficiency)
	for _, p := range proficiencies {
		profsBySection[p.ResumeSectionID] = append(profsBySection[p.ResumeSectionID], p)
	}
	skillsByProject := make(map[string][]model.ProjectSkill)
	for _, ps := range projectSkills {
		skillsByProject[ps.ProjectID] = append(skillsByProject[ps.ProjectID], ps)
	}

	views := make([]model.SectionView, 0, len(sections))
	for _, sec := range sections {
		view := model.SectionView{ID: sec.ID, Position: sec.Position, Type: sec.Type}
		switch sec.Type {
		case model.SectionEducation:
			view.Education = eduBySection[sec.ID]
		case model.SectionExperience:
			view.Experience = expBySection[sec.ID]
		case model.SectionSkill:
			for _, p := range profsBySection[sec.ID] {
				sk := skillByID[p.SkillID]
				view.Skills = append(view.Skills, model.SkillView{
					SkillRef: model.SkillRef{Name: sk.Name, Category: sk.Category},
					SkillID:  p.SkillID,
					Level:    p.Level,
				})
			}
		case model.SectionProject:
			view.Project = projBySection[sec.ID]
			if view.Project != nil {
				for _, ps := range skillsByProject[view.Project.ID] {
					sk := skillByID[ps.SkillID]
					view.ProjectSkills = append(view.ProjectSkills, model.SkillRef{Name: sk.Name, Category: sk.Category})
				}
			}
		case model.SectionCertification:
			view.Certification = certBySection[sec.ID]
		}
		views = append(views, view)
	}
	return views, nil
}

// ReplaceAllSections 原子替换简历的全部段落：删除旧段落及载荷，
// 按给定顺序重建。事务失败时原内容保持不变。
func (s *Store) ReplaceAllSections(ctx context.Context, resumeID string, writes []SectionWrite) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSectionsTx(tx, resumeID); err != nil {
			return err
		}
		for _, w := range writes {
			if err := tx.Create(&w.Section).Error; err != nil {
				return fmt.Errorf("create section: %w", err)
			}
			if w.Education != nil {
				if err := tx.Create(w.Education).Error; err != nil {
					return fmt.Errorf("create education: %w", err)
				}
			}
			if w.Experience != nil {
				if err := tx.Create(w.Experience).Error; err != nil {
					return fmt.Errorf("create experience: %w", err)
				}
			}
			if len(w.Proficiencies) > 0 {
				if err := tx.Create(&w.Proficiencies).Error; err != nil {
					return fmt.Errorf("create proficiencies: %w", err)
				}
			}
			if w.Project != nil {
				if err := tx.Create(w.Project).Error; err != nil {
					return fmt.Errorf("create project: %w", err)
				}
			}
			if len(w.ProjectSkills) > 0 {
				if err := tx.Create(&w.ProjectSkills).Error; err != nil {
					return fmt.Errorf("create project skills: %w", err)
				}
			}
			if w.Certification != nil {
				if err := tx.Create(w.Certification).Error; err != nil {
					return fmt.Errorf("create certification: %w", err)
				}
			}
		}
		return nil
	})
}

// deleteSectionsTx 删除简历全部段落与类型化载荷，顺序保证引用先删。
func deleteSectionsTx(tx *gorm.DB, resumeID string) error {
	var ids []string
	if err := tx.Model(&model.ResumeSection{}).Where("resume_id = ?", resumeID).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("collect section ids: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	var projectIDs []string
	if err := tx.Model(&model.Project{}).Where("resume_section_id IN ?", ids).Pluck("id", &projectIDs).Error; err != nil {
		return fmt.Errorf("collect project ids: %w", err)
	}
	if len(projectIDs) > 0 {
		if err := tx.Where("project_id IN ?", projectIDs).Delete(&model.ProjectSkill{}).Error; err != nil {
			return fmt.Errorf("delete project skills: %w", err)
		}
	}

	for _, payload := range []any{
		&model.Education{}, &model.Experience{}, &model.Proficiency{},
		&model.Project{}, &model.Certification{},
	} {
		if err := tx.Where("resume_section_id IN ?", ids).Delete(payload).Error; err != nil {
			return fmt.Errorf("delete payload rows: %w", err)
		}
	}

	if err := tx.Where("resume_id = ?", resumeID).Delete(&model.ResumeSection{}).Error; err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	return nil
}

// ReindexSections 按给定顺序重排段落位置。
// (resume_id, position) 唯一约束下直接赋终值会与未更新行冲突，
// 先统一置为互不重复的负数占位，再在同一事务内写入 0..n-1。
func (s *Store) ReindexSections(ctx context.Context, resumeID string, orderedIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			res := tx.Model(&model.ResumeSection{}).
				Where("id = ? AND resume_id = ?", id, resumeID).
				Update("position", -(i + 1))
			if res.Error != nil {
				return fmt.Errorf("stage position: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperr.New(apperr.NotFound, "section %s not found on resume %s", id, resumeID)
			}
		}
		for i, id := range orderedIDs {
			if err := tx.Model(&model.ResumeSection{}).
				Where("id = ?", id).
				Update("position", i).Error; err != nil {
				return fmt.Errorf("finalize position: %w", err)
			}
		}
		return nil
	})
}

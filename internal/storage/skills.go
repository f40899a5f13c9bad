package storage

import (
	"context"
	"fmt"
	"strings"

	"resume-tailor/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// NormalizeSkillRef 统一技能引用的大小写无关比较键。
func NormalizeSkillRef(ref model.SkillRef) model.SkillRef {
	return model.SkillRef{
		Name:     strings.TrimSpace(ref.Name),
		Category: strings.TrimSpace(ref.Category),
	}
}

// ResolveSkills 批量解析共享技能引用为 ID，缺失的先插入。
// 并发竞争走 insert-on-conflict-do-nothing 再回读，
// 由 (category, name) 唯一索引保证不产生重复行。
func (s *Store) ResolveSkills(ctx context.Context, refs []model.SkillRef) (map[model.SkillRef]string, error) {
	result := make(map[model.SkillRef]string, len(refs))
	if len(refs) == 0 {
		return result, nil
	}

	seen := make(map[model.SkillRef]struct{}, len(refs))
	candidates := make([]model.Skill, 0, len(refs))
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		norm := NormalizeSkillRef(ref)
		if norm.Name == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		candidates = append(candidates, model.Skill{ID: uuid.NewString(), Name: norm.Name, Category: norm.Category})
		names = append(names, norm.Name)
	}
	if len(candidates) == 0 {
		return result, nil
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&candidates).Error; err != nil {
		return nil, fmt.Errorf("insert skills: %w", err)
	}

	var rows []model.Skill
	if err := s.db.WithContext(ctx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reread skills: %w", err)
	}
	for _, row := range rows {
		key := model.SkillRef{Name: row.Name, Category: row.Category}
		if _, ok := seen[key]; ok {
			result[key] = row.ID
		}
	}

	for ref := range seen {
		if _, ok := result[ref]; !ok {
			return nil, fmt.Errorf("skill %q/%q missing after insert", ref.Category, ref.Name)
		}
	}
	return result, nil
}

// CountSkills 返回技能总数，测试断言去重时使用。
func (s *Store) CountSkills(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Skill{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count skills: %w", err)
	}
	return total, nil
}

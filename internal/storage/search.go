package storage

import (
	"context"
	"errors"
	"fmt"

	"resume-tailor/internal/apperr"
	"resume-tailor/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertSearchDocument 写入或更新简历检索文档。
func (s *Store) UpsertSearchDocument(ctx context.Context, doc *model.SearchDocument) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "resume_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "content", "updated_at"}),
	}).Create(doc).Error
	if err != nil {
		return fmt.Errorf("upsert search document: %w", err)
	}
	return nil
}

// GetSearchDocument 读取简历检索文档。
func (s *Store) GetSearchDocument(ctx context.Context, resumeID string) (*model.SearchDocument, error) {
	var doc model.SearchDocument
	if err := s.db.WithContext(ctx).First(&doc, "resume_id = ?", resumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "search document for resume %s not found", resumeID)
		}
		return nil, fmt.Errorf("get search document: %w", err)
	}
	return &doc, nil
}

// DeleteSearchDocument 删除简历检索文档，简历删除事件触发。
func (s *Store) DeleteSearchDocument(ctx context.Context, resumeID string) error {
	if err := s.db.WithContext(ctx).Where("resume_id = ?", resumeID).Delete(&model.SearchDocument{}).Error; err != nil {
		return fmt.Errorf("delete search document: %w", err)
	}
	return nil
}

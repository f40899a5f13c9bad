package fanout

import (
	"context"
	"fmt"
	"time"

	"resume-tailor/internal/bus"

	"gorm.io/datatypes"
)

// Emitter 统一发出 ResumeUpdated 扇出事件，
// 缩略图与检索消费者只依赖这一种信号。
type Emitter struct {
	pub bus.Publisher
	now func() time.Time
}

// NewEmitter 创建扇出发射器。
func NewEmitter(pub bus.Publisher) *Emitter {
	return &Emitter{pub: pub, now: time.Now}
}

// Emit 发出一条变更事件，key 取 resumeID 保证同简历变更有序消费。
func (e *Emitter) Emit(ctx context.Context, ev bus.ResumeUpdated) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now().UTC()
	}
	if err := e.pub.Publish(ctx, bus.TopicResumeUpdated, ev.ResumeID, ev); err != nil {
		return fmt.Errorf("publish resume updated: %w", err)
	}
	return nil
}

// BulkReplace 段落整组替换完成。
func (e *Emitter) BulkReplace(ctx context.Context, resumeID, userID string) error {
	return e.Emit(ctx, bus.ResumeUpdated{
		ResumeID:   resumeID,
		UserID:     userID,
		ChangeType: bus.ChangeBulkReplace,
	})
}

// SectionReordered 段落顺序调整完成。
func (e *Emitter) SectionReordered(ctx context.Context, resumeID, userID string) error {
	return e.Emit(ctx, bus.ResumeUpdated{
		ResumeID:   resumeID,
		UserID:     userID,
		ChangeType: bus.ChangeSectionReordered,
	})
}

// ThumbnailUpdated 缩略图刷新完成，附带新路径。
func (e *Emitter) ThumbnailUpdated(ctx context.Context, resumeID, userID, path string) error {
	return e.Emit(ctx, bus.ResumeUpdated{
		ResumeID:      resumeID,
		UserID:        userID,
		ChangeType:    bus.ChangeThumbnailUpdated,
		ChangedFields: datatypes.JSONMap{"thumbnail": path},
	})
}

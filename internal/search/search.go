package search

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"resume-tailor/internal/bus"
	"resume-tailor/internal/model"
)

// Store 抽象检索索引所需的存储接口。
type Store interface {
	GetResumeWithSections(ctx context.Context, id string) (*model.ResumeWithSections, error)
	UpsertSearchDocument(ctx context.Context, doc *model.SearchDocument) error
	DeleteSearchDocument(ctx context.Context, resumeID string) error
}

// Indexer 消费 ResumeUpdated 事件，维护简历的扁平化检索文档。
type Indexer struct {
	store  Store
	logger *log.Logger
	now    func() time.Time
}

// NewIndexer 创建索引器。
func NewIndexer(store Store) *Indexer {
	return &Indexer{
		store:  store,
		logger: log.New(os.Stdout, "[search] ", log.LstdFlags),
		now:    time.Now,
	}
}

// Register 订阅简历变更主题。
func (i *Indexer) Register(b bus.Bus) {
	b.Subscribe(bus.TopicResumeUpdated, i.HandleResumeUpdated)
}

// HandleResumeUpdated 刷新或删除检索文档。
// 缩略图路径变化不影响文本内容，跳过。
func (i *Indexer) HandleResumeUpdated(ctx context.Context, data []byte) error {
	var ev bus.ResumeUpdated
	if err := json.Unmarshal(data, &ev); err != nil {
		i.logger.Printf("bad resume updated payload: %v", err)
		return nil
	}
	if ev.ChangeType == bus.ChangeThumbnailUpdated {
		return nil
	}
	if ev.ChangeType == bus.ChangeResumeDeleted {
		if err := i.store.DeleteSearchDocument(ctx, ev.ResumeID); err != nil {
			i.logger.Printf("delete document: resume=%s err=%v", ev.ResumeID, err)
		}
		return nil
	}

	view, err := i.store.GetResumeWithSections(ctx, ev.ResumeID)
	if err != nil {
		i.logger.Printf("load resume: %s err=%v", ev.ResumeID, err)
		return nil
	}

	doc := &model.SearchDocument{
		ResumeID:  ev.ResumeID,
		UserID:    view.Resume.UserID,
		Content:   BuildContent(view.Sections),
		UpdatedAt: i.now().UTC(),
	}
	if err := i.store.UpsertSearchDocument(ctx, doc); err != nil {
		i.logger.Printf("upsert document: resume=%s err=%v", ev.ResumeID, err)
	}
	return nil
}

// BuildContent 把段落拼成一段可全文检索的文本。
func BuildContent(sections []model.SectionView) string {
	var parts []string
	add := func(values ...string) {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		}
	}
	for _, sec := range sections {
		switch sec.Type {
		case model.SectionEducation:
			if sec.Education != nil {
				add(sec.Education.School, sec.Education.Degree, sec.Education.Field, sec.Education.Description)
			}
		case model.SectionExperience:
			if sec.Experience != nil {
				add(sec.Experience.Company, sec.Experience.Title, sec.Experience.Description)
			}
		case model.SectionSkill:
			for _, sk := range sec.Skills {
				add(sk.Name, sk.Category)
			}
		case model.SectionProject:
			if sec.Project != nil {
				add(sec.Project.Name, sec.Project.Description)
				for _, ref := range sec.ProjectSkills {
					add(ref.Name)
				}
			}
		case model.SectionCertification:
			if sec.Certification != nil {
				add(sec.Certification.Name, sec.Certification.Issuer)
			}
		}
	}
	return strings.Join(parts, " ")
}

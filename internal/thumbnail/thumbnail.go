package thumbnail

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"resume-tailor/internal/bus"
	"resume-tailor/internal/fanout"
	"resume-tailor/internal/model"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	cardWidth   = 600
	cardHeight  = 800
	thumbWidth  = 240
	thumbHeight = 320
)

// Store 抽象缩略图渲染所需的存储接口。
type Store interface {
	GetResumeWithSections(ctx context.Context, id string) (*model.ResumeWithSections, error)
	SetResumeThumbnail(ctx context.Context, id, path string) error
}

// Config 缩略图输出配置。
type Config struct {
	Dir string `yaml:"dir" json:"dir"`
}

// Renderer 消费 ResumeUpdated 事件并重绘简历预览卡片。
type Renderer struct {
	store   Store
	emitter *fanout.Emitter
	dir     string
	font    *truetype.Font
	logger  *log.Logger
}

// NewRenderer 创建渲染器，dir 为空时输出到 thumbnails 目录。
func NewRenderer(store Store, emitter *fanout.Emitter, cfg Config) (*Renderer, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "thumbnails"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{
		store:   store,
		emitter: emitter,
		dir:     dir,
		font:    f,
		logger:  log.New(os.Stdout, "[thumbnail] ", log.LstdFlags),
	}, nil
}

// Register 订阅简历变更主题。
func (r *Renderer) Register(b bus.Bus) {
	b.Subscribe(bus.TopicResumeUpdated, r.HandleResumeUpdated)
}

// HandleResumeUpdated 重绘缩略图并回写路径。
// 自身发出的 thumbnail_updated 事件被跳过，避免反馈环。
func (r *Renderer) HandleResumeUpdated(ctx context.Context, data []byte) error {
	var ev bus.ResumeUpdated
	if err := json.Unmarshal(data, &ev); err != nil {
		r.logger.Printf("bad resume updated payload: %v", err)
		return nil
	}
	if ev.ChangeType == bus.ChangeThumbnailUpdated || ev.ChangeType == bus.ChangeResumeDeleted {
		return nil
	}

	view, err := r.store.GetResumeWithSections(ctx, ev.ResumeID)
	if err != nil {
		r.logger.Printf("load resume: %s err=%v", ev.ResumeID, err)
		return nil
	}

	path, err := r.Render(view)
	if err != nil {
		r.logger.Printf("render thumbnail: resume=%s err=%v", ev.ResumeID, err)
		return nil
	}

	if err := r.store.SetResumeThumbnail(ctx, ev.ResumeID, path); err != nil {
		r.logger.Printf("set thumbnail: resume=%s err=%v", ev.ResumeID, err)
		return nil
	}
	if err := r.emitter.ThumbnailUpdated(ctx, ev.ResumeID, ev.UserID, path); err != nil {
		r.logger.Printf("emit thumbnail updated: resume=%s err=%v", ev.ResumeID, err)
	}
	return nil
}

// Render 绘制预览卡片并缩放为缩略图，返回文件路径。
func (r *Renderer) Render(view *model.ResumeWithSections) (string, error) {
	card := imaging.New(cardWidth, cardHeight, color.White)

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(r.font)
	c.SetFontSize(16)
	c.SetClip(card.Bounds())
	c.SetDst(card)
	c.SetSrc(image.Black)

	y := 40
	for _, line := range summaryLines(view) {
		if y > cardHeight-40 {
			break
		}
		if _, err := c.DrawString(line, freetype.Pt(30, y)); err != nil {
			return "", fmt.Errorf("draw line: %w", err)
		}
		y += 28
	}

	thumb := imaging.Thumbnail(card, thumbWidth, thumbHeight, imaging.Lanczos)
	path := filepath.Join(r.dir, view.Resume.ID+".png")
	if err := imaging.Save(thumb, path); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	return path, nil
}

// summaryLines 把段落压成一行行可绘制文本。
func summaryLines(view *model.ResumeWithSections) []string {
	lines := make([]string, 0, len(view.Sections)+1)
	for _, sec := range view.Sections {
		switch sec.Type {
		case model.SectionEducation:
			if sec.Education != nil {
				lines = append(lines, fmt.Sprintf("Education: %s, %s", sec.Education.School, sec.Education.Degree))
			}
		case model.SectionExperience:
			if sec.Experience != nil {
				lines = append(lines, fmt.Sprintf("Experience: %s @ %s", sec.Experience.Title, sec.Experience.Company))
			}
		case model.SectionSkill:
			for _, sk := range sec.Skills {
				lines = append(lines, "Skill: "+sk.Name)
			}
		case model.SectionProject:
			if sec.Project != nil {
				lines = append(lines, "Project: "+sec.Project.Name)
			}
		case model.SectionCertification:
			if sec.Certification != nil {
				lines = append(lines, fmt.Sprintf("Certification: %s (%s)", sec.Certification.Name, sec.Certification.Issuer))
			}
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "Empty resume")
	}
	return lines
}

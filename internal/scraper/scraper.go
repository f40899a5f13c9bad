package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"resume-tailor/internal/bus"
	"resume-tailor/internal/model"

	"golang.org/x/net/html"
	"gorm.io/datatypes"
)

const maxDescriptionChars = 8000

// Store 抽象抓取器所需的存储接口。
type Store interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
	SaveJob(ctx context.Context, job *model.Job) error
	UpdateProcessStatus(ctx context.Context, id string, status model.ProcessStatus, details string) error
}

// Config 抓取配置。
type Config struct {
	Timeout  string         `yaml:"timeout" json:"timeout"`
	Deepseek DeepseekConfig `yaml:"deepseek" json:"deepseek"`
}

// fields 为一次提取的结构化结果。
type fields struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Summary string `json:"summary"`
}

// Worker 内置抓取协作方：消费抓取触发事件，抽取职位字段，
// 回写 Job 并发出成功或失败事件。
// 配置了 LLM 时用其归一化字段，否则退回 HTML 启发式。
type Worker struct {
	store   Store
	pub     bus.Publisher
	client  *http.Client
	llm     LLMClient
	timeout time.Duration
	logger  *log.Logger
}

// NewWorker 创建抓取器，llm 可为 nil。
func NewWorker(store Store, pub bus.Publisher, client *http.Client, llm LLMClient, cfg Config) *Worker {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}
	return &Worker{
		store:   store,
		pub:     pub,
		client:  client,
		llm:     llm,
		timeout: timeout,
		logger:  log.New(os.Stdout, "[scraper] ", log.LstdFlags),
	}
}

// Register 订阅抓取触发主题。
func (w *Worker) Register(b bus.Bus) {
	b.Subscribe(bus.TopicJobScrapeTriggered, w.HandleScrapeTriggered)
}

// HandleScrapeTriggered 处理一次抓取请求。
// 职位已不在 Processing 时视为重复投递直接跳过；
// 处理器自身从不抛错，失败落为 Job/Process 状态与失败事件。
func (w *Worker) HandleScrapeTriggered(ctx context.Context, data []byte) error {
	var ev bus.JobScrapeTriggered
	if err := json.Unmarshal(data, &ev); err != nil {
		w.logger.Printf("bad scrape trigger payload: %v", err)
		return nil
	}

	job, err := w.store.GetJob(ctx, ev.JobID)
	if err != nil {
		w.logger.Printf("load job: %s err=%v", ev.JobID, err)
		return nil
	}
	if job.Status != model.JobProcessing {
		w.logger.Printf("skip scrape: job=%s status=%s", job.ID, job.Status)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	extracted, err := w.extract(ctx, ev)
	if err != nil {
		w.fail(ctx, job, err.Error())
		return nil
	}

	job.Title = extracted.Title
	job.Company = extracted.Company
	job.Description = extracted.Summary
	job.Status = model.JobSuccess
	job.Metadata = datatypes.JSONMap{"extracted_at": time.Now().UTC().Format(time.RFC3339)}
	if err := w.store.SaveJob(ctx, job); err != nil {
		w.fail(ctx, job, "persist extraction: "+err.Error())
		return nil
	}
	if err := w.store.UpdateProcessStatus(ctx, job.ProcessID, model.ProcessSuccess, ""); err != nil {
		w.logger.Printf("mark process success: %s err=%v", job.ProcessID, err)
	}

	success := bus.JobScrapeSuccess{JobID: job.ID}
	if job.URL != nil {
		success.JobURL = *job.URL
	}
	if err := w.pub.Publish(ctx, bus.TopicJobScrapeSuccess, job.ID, success); err != nil {
		w.logger.Printf("publish scrape success: job=%s err=%v", job.ID, err)
	}
	return nil
}

// extract 依次尝试描述文本与 URL 抓取，再经 LLM 归一化。
func (w *Worker) extract(ctx context.Context, ev bus.JobScrapeTriggered) (fields, error) {
	var (
		raw fields
		err error
	)
	if strings.TrimSpace(ev.Description) != "" {
		raw = extractFromText(ev.Description)
	} else {
		raw, err = w.fetchAndParse(ctx, ev.JobURL)
		if err != nil {
			return fields{}, err
		}
	}

	if w.llm != nil {
		normalized, err := w.normalizeWithLLM(ctx, raw)
		if err != nil {
			w.logger.Printf("llm normalize failed, using heuristics: %v", err)
		} else {
			return normalized, nil
		}
	}
	return raw, nil
}

func (w *Worker) fetchAndParse(ctx context.Context, jobURL string) (fields, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return fields{}, fmt.Errorf("new request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fields{}, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fields{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fields{}, fmt.Errorf("read body: %w", err)
	}
	return parseHTML(string(body))
}

func (w *Worker) normalizeWithLLM(ctx context.Context, raw fields) (fields, error) {
	prompt := fmt.Sprintf(
		"Extract the job posting fields from the text below.\nTitle hint: %s\nCompany hint: %s\nText:\n%s\n"+
			`Respond with strict JSON: {"title":string,"company":string,"summary":string}.`,
		raw.Title, raw.Company, raw.Summary)
	respText, err := w.llm.Complete(ctx, prompt)
	if err != nil {
		return fields{}, fmt.Errorf("llm complete: %w", err)
	}
	var out fields
	if err := json.Unmarshal([]byte(respText), &out); err != nil {
		return fields{}, fmt.Errorf("parse llm response: %w", err)
	}
	if strings.TrimSpace(out.Title) == "" {
		return fields{}, fmt.Errorf("llm response missing title")
	}
	return out, nil
}

// fail 标记职位与进度失败并发出失败事件，错误只记录。
func (w *Worker) fail(ctx context.Context, job *model.Job, reason string) {
	w.logger.Printf("scrape failed: job=%s reason=%s", job.ID, reason)
	job.Status = model.JobFailure
	if err := w.store.SaveJob(ctx, job); err != nil {
		w.logger.Printf("persist job failure: %s err=%v", job.ID, err)
	}
	if err := w.store.UpdateProcessStatus(ctx, job.ProcessID, model.ProcessFailure, reason); err != nil {
		w.logger.Printf("mark process failure: %s err=%v", job.ProcessID, err)
	}
	if err := w.pub.Publish(ctx, bus.TopicJobScrapeFailed, job.ID, bus.JobScrapeFailed{JobID: job.ID, ErrorMessage: reason}); err != nil {
		w.logger.Printf("publish scrape failed: job=%s err=%v", job.ID, err)
	}
}

// extractFromText 描述模式的朴素提取：首行作标题，全文作摘要。
func extractFromText(text string) fields {
	text = strings.TrimSpace(text)
	lines := strings.SplitN(text, "\n", 2)
	title := strings.TrimSpace(lines[0])
	if len(title) > 120 {
		title = title[:120]
	}
	return fields{Title: title, Summary: truncate(text, maxDescriptionChars)}
}

// parseHTML 从页面提取 <title>、og 元信息与正文文本。
func parseHTML(page string) (fields, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return fields{}, fmt.Errorf("parse html: %w", err)
	}

	var out fields
	var body strings.Builder
	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "title":
				if n.FirstChild != nil && out.Title == "" {
					out.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				var prop, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "property", "name":
						prop = attr.Val
					case "content":
						content = attr.Val
					}
				}
				switch prop {
				case "og:site_name":
					out.Company = strings.TrimSpace(content)
				case "og:title":
					if out.Title == "" {
						out.Title = strings.TrimSpace(content)
					}
				}
			case "script", "style":
				return
			case "body":
				inBody = true
			}
		case html.TextNode:
			if inBody {
				if text := strings.TrimSpace(n.Data); text != "" {
					body.WriteString(text)
					body.WriteString("\n")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)

	if out.Title == "" {
		return fields{}, fmt.Errorf("page has no title")
	}
	out.Summary = truncate(strings.TrimSpace(body.String()), maxDescriptionChars)
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

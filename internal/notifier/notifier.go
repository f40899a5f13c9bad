package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"resume-tailor/internal/bus"
	"resume-tailor/internal/model"
)

// UserStore 定义用户邮箱读取接口。
type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// TailoringNotifier 消费定制完成/失败事件并通知用户。
type TailoringNotifier struct {
	store  UserStore
	sender EmailSender
	from   string
	logger *log.Logger
}

// NewTailoringNotifier 创建通知器，sender 为 nil 时退化为日志输出。
func NewTailoringNotifier(store UserStore, sender EmailSender, from string) *TailoringNotifier {
	if sender == nil {
		sender = NewLogSender(nil)
	}
	return &TailoringNotifier{
		store:  store,
		sender: sender,
		from:   from,
		logger: log.New(os.Stdout, "[notifier] ", log.LstdFlags),
	}
}

// Register 订阅定制结果主题。
func (n *TailoringNotifier) Register(b bus.Bus) {
	b.Subscribe(bus.TopicTailoringSuccess, n.HandleSuccess)
	b.Subscribe(bus.TopicTailoringFailed, n.HandleFailed)
}

// HandleSuccess 通知定制完成。
func (n *TailoringNotifier) HandleSuccess(ctx context.Context, data []byte) error {
	var ev bus.ResumeTailoringSuccess
	if err := json.Unmarshal(data, &ev); err != nil {
		n.logger.Printf("bad success payload: %v", err)
		return nil
	}
	subject := "Your tailored resume is ready"
	body := fmt.Sprintf("Resume %s has been tailored for job %s.", ev.ResumeID, ev.JobID)
	n.send(ctx, ev.UserID, subject, body)
	return nil
}

// HandleFailed 通知定制失败及原因。
func (n *TailoringNotifier) HandleFailed(ctx context.Context, data []byte) error {
	var ev bus.ResumeTailoringFailed
	if err := json.Unmarshal(data, &ev); err != nil {
		n.logger.Printf("bad failed payload: %v", err)
		return nil
	}
	subject := "Resume tailoring failed"
	body := fmt.Sprintf("Tailoring resume %s for job %s failed: %s", ev.ResumeID, ev.JobID, ev.ErrorMessage)
	n.send(ctx, ev.UserID, subject, body)
	return nil
}

func (n *TailoringNotifier) send(ctx context.Context, userID, subject, body string) {
	user, err := n.store.GetUser(ctx, userID)
	if err != nil {
		n.logger.Printf("load user: %s err=%v", userID, err)
		return
	}
	msg := EmailMessage{
		From:    n.from,
		To:      []string{user.Email},
		Subject: subject,
		Body:    body,
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Printf("send mail: user=%s err=%v", userID, err)
	}
}

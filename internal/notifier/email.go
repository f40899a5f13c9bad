package notifier

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// EmailConfig 邮件配置。
type EmailConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	From     string `yaml:"from" json:"from"`
}

// EmailMessage 表示一封邮件。
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// EmailSender 抽象发送接口，便于测试替换。
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient 封装 SMTP 发送。
type SMTPClient struct {
	addr string
	auth smtp.Auth
}

func NewSMTPClient(cfg EmailConfig) *SMTPClient {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	data := buildEmailData(msg)
	return smtp.SendMail(c.addr, c.auth, msg.From, msg.To, []byte(data))
}

func buildEmailData(msg EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

// LogSender 仅打印邮件内容，适合开发阶段与未配置 SMTP 时使用。
type LogSender struct {
	logger *log.Logger
}

// NewLogSender 创建日志发送器，未提供 logger 时默认输出到标准输出。
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.New(os.Stdout, "[notify] ", log.LstdFlags)
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Printf("mail to=%s subject=%q body=%q", strings.Join(msg.To, ","), msg.Subject, msg.Body)
	return nil
}

// Package notify emails recipients when a download code is issued for them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/minio"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Config SMTP 通知配置
type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	From          string        `mapstructure:"from"`
	FromName      string        `mapstructure:"from_name"`
	TLSPolicy     string        `mapstructure:"tls_policy"` // mandatory, opportunistic, none
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	PortalURL     string        `mapstructure:"portal_url"`
	// Workers 并发发送的 worker 数，QueueSize 待发送队列长度
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// Validate 校验必填项
func (c *Config) Validate() error {
	if c.Host == "" || c.From == "" {
		return errors.New("mail.host and mail.from are required when mail is enabled")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("mail.port must be between 1 and 65535")
	}
	switch c.TLSPolicy {
	case "", "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("mail.tls_policy must be mandatory, opportunistic or none, got %q", c.TLSPolicy)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 587
	}
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 2 * time.Second
	}
	if c.FromName == "" {
		c.FromName = "File Portal"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1000
	}
}

// sendBudget 单封邮件全部重试的最长耗时
func (c *Config) sendBudget() time.Duration {
	return time.Duration(c.MaxRetries)*(c.Timeout+c.RetryInterval) + c.Timeout
}

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// MailNotifier 通过 SMTP 发送下载码通知
type MailNotifier struct {
	config Config
	logger *logger.Logger
	send   sendFunc
}

// NewMailNotifier 创建邮件通知器
func NewMailNotifier(cfg Config, log *logger.Logger) (*MailNotifier, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &MailNotifier{config: cfg, logger: log.Named("notify")}
	n.send = n.dialAndSend
	return n, nil
}

// NotifyCodeIssued 发送下载码通知（带重试）
func (n *MailNotifier) NotifyCodeIssued(ctx context.Context, note biz.CodeNotification) error {
	msg, err := n.buildMessage(note)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= n.config.MaxRetries; attempt++ {
		if lastErr = n.send(ctx, msg); lastErr == nil {
			n.logger.WithContext(ctx).Info("download code notification sent",
				zap.String("recipient", note.Recipient),
				zap.Int("attempt", attempt),
			)
			return nil
		}
		if attempt == n.config.MaxRetries {
			break
		}

		timer := time.NewTimer(n.config.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("send notification: %w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed to send notification after %d attempts: %w", n.config.MaxRetries, lastErr)
}

// dialAndSend 建立 SMTP 连接并发送
func (n *MailNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(n.config.Port),
		mail.WithTimeout(n.config.Timeout),
		mail.WithTLSPolicy(tlsPolicy(n.config.TLSPolicy)),
	}
	if n.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.config.Username),
			mail.WithPassword(n.config.Password),
		)
	}

	client, err := mail.NewClient(n.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	defer client.Close()

	sendCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()
	return client.DialAndSendWithContext(sendCtx, msg)
}

func tlsPolicy(p string) mail.TLSPolicy {
	switch p {
	case "none":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}

// buildMessage 构建通知邮件
func (n *MailNotifier) buildMessage(note biz.CodeNotification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(n.config.FromName, n.config.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(note.Recipient); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}

	msg.Subject(fmt.Sprintf("Your download code for %s", note.FileName))
	msg.SetBodyString(mail.TypeTextPlain, renderBody(note, n.config.PortalURL))
	msg.SetGenHeader(mail.HeaderXMailer, "File-Portal-Backend")
	msg.SetDate()
	msg.SetMessageID()
	return msg, nil
}

func renderBody(note biz.CodeNotification, portalURL string) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "A file has been shared with you: %s (%s).\n\n", note.FileName, minio.FormatBytes(note.FileSize))
	fmt.Fprintf(&b, "Download code: %s\n\n", note.Code)
	b.WriteString("The code can be used once and only by this email address.\n")
	if portalURL != "" {
		fmt.Fprintf(&b, "Redeem it at %s\n", portalURL)
	}
	if note.Notes != "" {
		fmt.Fprintf(&b, "\nNote from %s:\n%s\n", note.IssuedBy, note.Notes)
	}
	return b.String()
}

package mail

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	SendFamilyInvite(ctx context.Context, to string, invite Invite) error
}

type Invite struct {
	FamilyName  string
	InviterName string
	Code        string
}

type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	From      string
	ClientURL string
}

type SMTPMailer struct {
	dialer    *gomail.Dialer
	from      string
	clientURL string
}

// New returns an SMTP mailer, or a mailer that only logs when no host is configured.
func New(cfg Config) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}

	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPMailer{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:      from,
		clientURL: cfg.ClientURL,
	}
}

func (m *SMTPMailer) SendFamilyInvite(_ context.Context, to string, invite Invite) error {
	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", fmt.Sprintf("%s 가족 초대", invite.FamilyName))
	message.SetBody("text/html", inviteBody(invite, inviteLink(m.clientURL, invite.Code)))

	if err := m.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("failed to send invite mail: %w", err)
	}
	return nil
}

func inviteLink(clientURL, code string) string {
	return fmt.Sprintf("%s/join?code=%s", clientURL, url.QueryEscape(code))
}

func inviteBody(invite Invite, link string) string {
	return `
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
			<h2 style="color: #333; text-align: center;">` + html.EscapeString(invite.FamilyName) + ` 가족에 초대되었어요</h2>
			<p>` + html.EscapeString(invite.InviterName) + `님이 아기 기록을 함께 관리하자고 초대했습니다.</p>
			<p style="text-align: center; font-size: 24px; letter-spacing: 4px;"><b>` + html.EscapeString(invite.Code) + `</b></p>
			<p style="text-align: center;"><a href="` + html.EscapeString(link) + `" style="display: inline-block; padding: 10px 20px; background-color: #28a745; color: #fff; text-decoration: none; border-radius: 5px;">초대 수락하기</a></p>
			<p>초대 코드는 7일 동안 유효합니다.</p>
		</div>
	`
}

// LogMailer writes invites to the request log instead of sending them.
type LogMailer struct{}

func (LogMailer) SendFamilyInvite(ctx context.Context, to string, invite Invite) error {
	logger.FromContext(ctx).Info("smtp is not configured, invite not sent",
		zap.String("to", to),
		zap.String("invite_code", invite.Code),
	)
	return nil
}

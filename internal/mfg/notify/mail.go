package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/AjAjish/manufacturing-erp/internal/config"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// DispatchNotice 发货通知内容
type DispatchNotice struct {
	To              string
	CustomerName    string
	QuoteNumber     string
	ProjectName     string
	TransportMode   string
	TransporterName string
	VehicleNumber   string
	TrackingNumber  string
	LRNumber        string
	DispatchDate    string
	ExpectedDate    string
}

var dispatchNoticeTmpl = template.Must(template.New("dispatch_notice").Parse(
	`Dear {{.CustomerName}},

Your order {{.QuoteNumber}} ({{.ProjectName}}) was dispatched on {{.DispatchDate}}.

Transport mode: {{.TransportMode}}
{{- if .TransporterName}}
Transporter: {{.TransporterName}}{{end}}
{{- if .VehicleNumber}}
Vehicle: {{.VehicleNumber}}{{end}}
{{- if .TrackingNumber}}
Tracking number: {{.TrackingNumber}}{{end}}
{{- if .LRNumber}}
LR number: {{.LRNumber}}{{end}}
{{- if .ExpectedDate}}
Expected delivery: {{.ExpectedDate}}{{end}}

Regards,
Logistics
`))

// Subject 邮件标题
func (n DispatchNotice) Subject() string {
	return fmt.Sprintf("Order %s dispatched", n.QuoteNumber)
}

// Body 纯文本正文
func (n DispatchNotice) Body() (string, error) {
	var buf bytes.Buffer
	if err := dispatchNoticeTmpl.Execute(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Mailer SMTP 发信
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
		logger: logger,
	}
}

// Send 发送纯文本邮件
func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.logger.Info("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// SendDispatchNotice 发货通知
func (m *Mailer) SendDispatchNotice(n DispatchNotice) error {
	if n.To == "" {
		return nil
	}
	body, err := n.Body()
	if err != nil {
		return fmt.Errorf("render dispatch notice: %w", err)
	}
	return m.Send(n.To, n.Subject(), body)
}

package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	gomail "github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"money": func(m model.Money) string { return m.StringFixed(2) },
}).ParseFS(templateFS, "templates/*.html"))

// go-mail の Client のうち送信だけ
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

type Mailer struct {
	client sender
	from   string
}

var _ usecase.Notifier = (*Mailer)(nil)

func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Mailer{client: client, from: cfg.From}, nil
}

type orderView struct {
	Order model.Order
}

func (m *Mailer) OrderConfirmation(ctx context.Context, to string, order model.Order) error {
	return m.send(ctx, to, fmt.Sprintf("Order #%d confirmed", order.ID), "order_confirmation.html", orderView{Order: order})
}

func (m *Mailer) ShippingUpdate(ctx context.Context, to string, order model.Order) error {
	return m.send(ctx, to, fmt.Sprintf("Order #%d has shipped", order.ID), "shipping_update.html", orderView{Order: order})
}

func (m *Mailer) send(ctx context.Context, to, subject, tpl string, data interface{}) error {
	body, err := render(tpl, data)
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	return m.client.DialAndSendWithContext(ctx, msg)
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// SMTP 未設定時
type NopNotifier struct{}

var _ usecase.Notifier = NopNotifier{}

func (NopNotifier) OrderConfirmation(ctx context.Context, to string, order model.Order) error {
	return nil
}

func (NopNotifier) ShippingUpdate(ctx context.Context, to string, order model.Order) error {
	return nil
}

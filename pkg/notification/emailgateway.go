package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

const verificationSubject = "Verify your email address"

const verificationTextTemplate = `Welcome!

Please confirm your email address by opening the link below:

{{.VerificationLink}}

The link expires in {{.ExpiryHours}} hours. If you did not sign up, you can ignore this message.
`

const verificationHTMLTemplate = `<html>
<body>
<p>Welcome!</p>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="{{.VerificationLink}}">Verify email address</a></p>
<p>The link expires in {{.ExpiryHours}} hours. If you did not sign up, you can ignore this message.</p>
</body>
</html>
`

// EmailGateway delivers verification links over SMTP.
type EmailGateway struct {
	SMTPConfig  SMTPConfig
	client      *mail.Client
	textTmpl    *template.Template
	htmlTmpl    *template.Template
	expiryHours int
}

// NewEmailGateway creates a new SMTP-backed messaging gateway
func NewEmailGateway(config SMTPConfig, expiryHours int) (*EmailGateway, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30), // Set timeout to 30 seconds
	}

	// Only add authentication if username and password are provided
	if config.Username != "" && config.Password != "" {
		slog.Info("Adding authentication", "user", config.Username)
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		slog.Info("Using NoTLS policy")
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{
				InsecureSkipVerify: true, // Skip hostname verification
			}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	} else {
		slog.Info("Using TLS Mandatory policy")
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{
				InsecureSkipVerify: true,
			}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	slog.Info("Creating mail client", "Host", config.Host, "Port", config.Port)
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	textTmpl, err := template.New("text").Parse(verificationTextTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	htmlTmpl, err := template.New("html").Parse(verificationHTMLTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}

	return &EmailGateway{
		SMTPConfig:  config,
		client:      client,
		textTmpl:    textTmpl,
		htmlTmpl:    htmlTmpl,
		expiryHours: expiryHours,
	}, nil
}

// Deliver sends the verification link to the address
func (e *EmailGateway) Deliver(ctx context.Context, address, verificationURL string) error {
	if address == "" {
		return fmt.Errorf("email delivery requires an address")
	}

	data := map[string]string{
		"VerificationLink": verificationURL,
		"ExpiryHours":      fmt.Sprintf("%d", e.expiryHours),
	}

	var textBody bytes.Buffer
	if err := e.textTmpl.Execute(&textBody, data); err != nil {
		slog.Error("Failed to execute text template", "err", err)
		return err
	}

	var htmlBody bytes.Buffer
	if err := e.htmlTmpl.Execute(&htmlBody, data); err != nil {
		slog.Error("Failed to execute HTML template", "err", err)
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		slog.Error("Failed to set from address", "err", err)
		return err
	}
	if err := msg.To(address); err != nil {
		slog.Error("Failed to set to address", "err", err)
		return err
	}
	msg.Subject(verificationSubject)
	msg.SetBodyString(mail.TypeTextPlain, textBody.String())
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody.String())

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Failed to send email", "err", err)
		return err
	}

	slog.Info("Verification email sent", "to", address, "host", e.SMTPConfig.Host, "port", e.SMTPConfig.Port)
	return nil
}

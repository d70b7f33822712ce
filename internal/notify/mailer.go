// Package notify sends the welcome mail to newly registered users.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/diogopython/Nuvemhost/internal/config"
)

// sendMail is replaced in tests.
var sendMail = smtp.SendMail

const welcomeSubject = "Bem-vindo ao NuvemHost 🚀"

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<html>
<body style="margin:0; padding:0; font-family: Arial, sans-serif; background-color:#f4f4f4;">
  <table align="center" width="600" cellpadding="0" cellspacing="0" style="background-color:#ffffff; border-radius:8px; padding:20px; margin-top:30px;">
    <tr>
      <td align="center">
        <h1 style="color:#7c3aed; margin-bottom:10px;">Olá, {{.Username}}!</h1>
        <p style="color:#444444; font-size:16px; margin-bottom:20px;">Seja muito bem-vindo ao <strong>NuvemHost</strong>! 🎉</p>
        <p style="color:#444444; font-size:14px; margin-bottom:30px;">Estamos felizes em ter você conosco. Explore nossos serviços e aproveite ao máximo!</p>
        <a href="{{.SiteURL}}" style="display:inline-block; background:linear-gradient(90deg,#7c3aed,#06b6d4); color:#ffffff; padding:14px 22px; border-radius:6px; text-decoration:none; font-weight:bold;">Acessar NuvemHost</a>
      </td>
    </tr>
    <tr>
      <td align="center" style="padding-top:30px; color:#888888; font-size:12px;">Atenciosamente,<br>{{.FromName}}</td>
    </tr>
  </table>
</body>
</html>
`))

// SMTPMailer sends mail through an authenticated SMTP relay. STARTTLS is
// used when the server offers it.
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendWelcome renders and sends the welcome message to the given address.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.welcomeMessage(to, username)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := sendMail(addr, auth, m.cfg.User, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) welcomeMessage(to, username string) ([]byte, error) {
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("bad recipient: %w", err)
	}
	var body bytes.Buffer
	err = welcomeTmpl.Execute(&body, struct {
		Username, SiteURL, FromName string
	}{username, m.cfg.SiteURL, m.cfg.FromName})
	if err != nil {
		return nil, err
	}

	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.User}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", rcpt.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", welcomeSubject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

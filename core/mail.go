package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"strings"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain content

		// optional html body, rendered with BodyData
		HTMLTemplate string
		BodyData     interface{}

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	m.TextContent = m.BodyStr
	if m.HTMLTemplate == "" {
		return nil
	}

	tmpl, err := htmltmpl.New("email").Option("missingkey=error").Parse(m.HTMLTemplate)
	if err != nil {
		return err
	}
	var buff bytes.Buffer
	if err = tmpl.Execute(&buff, m.BodyData); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// Recipients returns a comma separated list of the "To" addresses.
func (m *EmailMessage) Recipients() string {
	addrs := make([]string, 0, len(m.To))
	for _, a := range m.To {
		addrs = append(addrs, a.Address)
	}
	return strings.Join(addrs, ", ")
}

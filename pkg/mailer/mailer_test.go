package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIncludesHeadersAndAttachment(t *testing.T) {
	m := Build("no-reply@example.com", Message{
		To:          "ada@example.com",
		Subject:     "Monthly Quiz Report",
		HTMLBody:    "<p>Hello</p>",
		Attachments: []Attachment{{Name: "report.pdf", Data: []byte("%PDF-1.3")}},
	})

	assert.Equal(t, []string{"ada@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Monthly Quiz Report"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, `filename="report.pdf"`)
}

func TestSendRejectsEmptyRecipientAndCancelledContext(t *testing.T) {
	s := NewSMTPSender(Config{Host: "localhost", Port: 25, From: "no-reply@example.com"})

	assert.Error(t, s.Send(context.Background(), Message{Subject: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "a@example.com"}), context.Canceled)
}

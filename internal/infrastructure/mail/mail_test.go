package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/readify/internal/application"
)

func TestSMTPMailerComposesMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Addr: "smtp.example.com:587", Username: "u", Password: "p", From: "no-reply@readify.local"})
	m.now = func() time.Time { return time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC) }
	require.NotNil(t, m.auth)

	var gotAddr, gotFrom string
	var gotTo []string
	var body string
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, body = addr, from, to, string(msg)
		return nil
	}

	err := m.Send(context.Background(), application.Mail{To: "reader@example.com", Subject: "Mã xác thực", Body: "Your code is 123456\nIt expires in 5 minutes"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "no-reply@readify.local", gotFrom)
	assert.Equal(t, []string{"reader@example.com"}, gotTo)
	assert.Contains(t, body, "To: reader@example.com\r\n")
	assert.Contains(t, body, "Subject: =?utf-8?q?")
	assert.Contains(t, body, "Date: Tue, 01 Apr 2025 09:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(body, "\r\n\r\nYour code is 123456\r\nIt expires in 5 minutes"))
}

func TestSMTPMailerErrors(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Addr: "localhost:25", From: "a@b"})
	assert.Nil(t, m.auth)
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

	assert.ErrorContains(t, m.Send(context.Background(), application.Mail{To: "x@y"}), "x@y")
	assert.Error(t, m.Send(context.Background(), application.Mail{To: "x@y\r\nBcc: z@w"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, application.Mail{To: "x@y"}), context.Canceled)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLogMailer(nil).Send(context.Background(), application.Mail{To: "x@y", Subject: "s"}))
}

package services

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_SendMagicLink(t *testing.T) {
	mailer := NewSMTPMailer("smtp.example.com", "587", "bot@example.com", "pw", "")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	mailer.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, mailer.SendMagicLink("user@example.com", "http://localhost/api/auth/magic-link?token=abc"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "To: user@example.com")
	assert.Contains(t, string(gotMsg), "token=abc")
}

func TestSMTPMailer_Errors(t *testing.T) {
	assert.Error(t, NewSMTPMailer("smtp.example.com", "", "", "", "").SendMagicLink("user@example.com", "link"))

	mailer := NewSMTPMailer("smtp.example.com", "587", "bot@example.com", "pw", "noreply@example.com")
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	err := mailer.SendMagicLink("user@example.com", "link")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

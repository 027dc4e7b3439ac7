package alert

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/loregraph/pkg/config"
)

func TestNewSelectsAlerter(t *testing.T) {
	_, isLog := New(config.AlertConfig{}, nil).(*LogAlerter)
	assert.True(t, isLog)

	enabled := config.AlertConfig{Enabled: true, SMTPHost: "smtp.example.com", SMTPPort: 587, To: []string{"ops@example.com"}}
	_, isEmail := New(enabled, nil).(*EmailAlerter)
	assert.True(t, isEmail)
}

func TestEmailAlerterSends(t *testing.T) {
	var gotAddr string
	var gotMsg []byte
	a := NewEmailAlerter(config.AlertConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "loregraph@example.com",
		To:       []string{"ops@example.com", "dev@example.com"},
	})
	a.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		return nil
	}

	require.NoError(t, a.Alert("Graph store degraded", "switched to memory"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.True(t, strings.Contains(string(gotMsg), "Subject: [loregraph] Graph store degraded"))
	assert.True(t, strings.Contains(string(gotMsg), "To: ops@example.com,dev@example.com"))
}

func TestEmailAlerterWrapsSendError(t *testing.T) {
	boom := errors.New("connection refused")
	a := NewEmailAlerter(config.AlertConfig{Enabled: true, SMTPHost: "localhost", SMTPPort: 25, To: []string{"x@example.com"}})
	a.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	err := a.Alert("subject", "body")
	assert.ErrorIs(t, err, boom)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_ = r.Alert("one", "")
	_ = r.Alert("two", "")
	assert.Equal(t, []string{"one", "two"}, r.Subjects())
}

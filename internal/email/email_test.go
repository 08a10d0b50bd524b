package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestRenderPasswordReset(t *testing.T) {
	msg, err := renderPasswordReset(PasswordResetData{
		FamilyTitle: "The <Smiths>",
		ResetURL:    "http://localhost:3000/reset-password/abc",
	})
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "http://localhost:3000/reset-password/abc")
	assert.Contains(t, msg.HTML, "The &lt;Smiths&gt;")
	assert.Contains(t, msg.Text, "The <Smiths>")
	assert.NotEmpty(t, msg.Subject)
}

func TestSESMailer_BuildsSimpleMessage(t *testing.T) {
	client := &fakeSES{}
	m := &SESMailer{client: client, fromEmail: "noreply@example.com", fromName: "ORA Family", log: logger.Discard().Component("Email")}

	err := m.SendPasswordReset(context.Background(), "mom@example.com", "Smiths", "http://x/reset-password/t")
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "ORA Family <noreply@example.com>", aws.ToString(client.input.FromEmailAddress))
	assert.Equal(t, []string{"mom@example.com"}, client.input.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(client.input.Content.Simple.Body.Text.Data), "http://x/reset-password/t")
}

func TestSESMailer_PropagatesFailure(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	m := &SESMailer{client: client, fromEmail: "noreply@example.com", log: logger.Discard().Component("Email")}

	err := m.SendPasswordReset(context.Background(), "mom@example.com", "Smiths", "http://x")
	assert.Error(t, err)
}

func TestSMTPService_NotConfigured(t *testing.T) {
	s := NewService(&Config{}, logger.Discard().Component("Email"))
	err := s.SendPasswordReset(context.Background(), "mom@example.com", "Smiths", "http://x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPService_BuildMessage(t *testing.T) {
	s := NewService(&Config{From: "noreply@example.com", FromName: "ORA Family"}, logger.Discard().Component("Email"))
	raw := string(s.buildMessage(&Email{To: []string{"a@example.com", "b@example.com"}, Subject: "Hi", Body: "plain"}))

	assert.True(t, strings.HasPrefix(raw, "From: ORA Family <noreply@example.com>\r\n"))
	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nplain"))
}

func TestNew_SelectsProvider(t *testing.T) {
	log := logger.Discard().Component("Email")

	m, err := New(context.Background(), ProviderConfig{}, log)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)
	assert.NoError(t, m.SendPasswordReset(context.Background(), "a@example.com", "A", "http://x"))

	m, err = New(context.Background(), ProviderConfig{Provider: "SMTP"}, log)
	require.NoError(t, err)
	assert.IsType(t, &Service{}, m)

	_, err = New(context.Background(), ProviderConfig{Provider: "pigeon"}, log)
	assert.Error(t, err)

	_, err = New(context.Background(), ProviderConfig{Provider: "ses"}, log)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends email through Amazon SES v2.
type SESMailer struct {
	client    sesAPI
	fromEmail string
	fromName  string
	log       *logrus.Entry
}

// NewSESMailer loads the default AWS credential chain for region.
func NewSESMailer(ctx context.Context, region, fromEmail, fromName string, log *logrus.Entry) (*SESMailer, error) {
	if fromEmail == "" {
		return nil, fmt.Errorf("SES_FROM is required for the ses provider: %w", ErrNotConfigured)
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.WithFields(logrus.Fields{"from": fromEmail, "region": region}).Info("SES email enabled")
	return &SESMailer{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		log:       log,
	}, nil
}

func (m *SESMailer) SendPasswordReset(ctx context.Context, to, familyTitle, resetURL string) error {
	msg, err := renderPasswordReset(PasswordResetData{FamilyTitle: familyTitle, ResetURL: resetURL})
	if err != nil {
		return err
	}
	return m.send(ctx, to, msg)
}

func (m *SESMailer) send(ctx context.Context, to string, msg *renderedMessage) error {
	from := m.fromEmail
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	entry := m.log.WithField("to", to)
	if out != nil && out.MessageId != nil {
		entry = entry.WithField("message_id", *out.MessageId)
	}
	entry.Info("email sent")
	return nil
}

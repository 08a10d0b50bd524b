package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// PasswordResetData holds data for the password reset email
type PasswordResetData struct {
	FamilyTitle string
	ResetURL    string
}

type renderedMessage struct {
	Subject string
	HTML    string
	Text    string
}

var passwordResetHTML = htmltemplate.Must(htmltemplate.New("password_reset").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #10b981; color: white; padding: 24px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 24px; border-radius: 0 0 8px 8px; }
        .btn { display: inline-block; background: #10b981; color: white; padding: 12px 20px; text-decoration: none; border-radius: 6px; margin-top: 16px; }
        .footer { margin-top: 24px; font-size: 12px; color: #6b7280; text-align: center; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h2>Reset your family password</h2>
    </div>
    <div class="content">
        <p>Hello {{.FamilyTitle}},</p>
        <p>Someone asked to reset the password of your ORA Family account.</p>

        <a href="{{.ResetURL}}" class="btn">Reset Password</a>

        <p style="word-break: break-all; font-size: 12px; color: #6b7280;">{{.ResetURL}}</p>
        <p><strong>This link is valid for 60 minutes.</strong> If you did not ask for a reset, you can ignore this email.</p>
    </div>
    <div class="footer">
        ORA Family • Chores, points and rewards
    </div>
</div>
</body>
</html>
`))

var passwordResetText = texttemplate.Must(texttemplate.New("password_reset_text").Parse(`Hello {{.FamilyTitle}},

Someone asked to reset the password of your ORA Family account.
Open this link to choose a new one:

{{.ResetURL}}

This link is valid for 60 minutes. If you did not ask for a reset, you can ignore this email.
`))

func renderPasswordReset(data PasswordResetData) (*renderedMessage, error) {
	var html, text bytes.Buffer
	if err := passwordResetHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("template execution error: %w", err)
	}
	if err := passwordResetText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("template execution error: %w", err)
	}
	return &renderedMessage{
		Subject: "[ORA Family] Password reset",
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"html/template"
	"strconv"
)

// VerificationEmailData contains the data for an email verification message.
type VerificationEmailData struct {
	AppName   string
	UserName  string
	VerifyURL string
	ExpiryHrs int
}

// VerificationEmail generates both plain text and HTML versions of the
// address verification email sent on registration.
func VerificationEmail(data VerificationEmailData) (textBody, htmlBody string) {
	textBody = "Hello " + data.UserName + ",\n\n" +
		"Welcome to " + data.AppName + "! Please confirm your university email address " +
		"by opening the link below:\n\n" +
		data.VerifyURL + "\n\n" +
		"This link will expire in " + strconv.Itoa(data.ExpiryHrs) + " hours.\n\n" +
		"If you did not register, you can safely ignore this email."

	var buf bytes.Buffer
	verificationHTMLTmpl.Execute(&buf, data)
	htmlBody = buf.String()

	return textBody, htmlBody
}

// PasswordChangedEmailData contains the data for a password changed
// confirmation email.
type PasswordChangedEmailData struct {
	AppName  string
	LoginURL string
}

// PasswordChangedEmail generates both plain text and HTML versions of a
// password changed confirmation email.
func PasswordChangedEmail(data PasswordChangedEmailData) (textBody, htmlBody string) {
	textBody = "Your " + data.AppName + " password has been changed.\n\n" +
		"If you made this change, you can safely ignore this email.\n\n" +
		"If you did NOT make this change, your account may have been compromised. " +
		"Please change your password immediately by visiting:\n" + data.LoginURL

	var buf bytes.Buffer
	passwordChangedHTMLTmpl.Execute(&buf, data)
	htmlBody = buf.String()

	return textBody, htmlBody
}

// AccountDisabledEmailData contains the data for an account disabled
// notification.
type AccountDisabledEmailData struct {
	AppName      string
	UserName     string
	Reason       string
	ContactEmail string
}

// AccountDisabledEmail generates both plain text and HTML versions of an
// account disabled notification.
func AccountDisabledEmail(data AccountDisabledEmailData) (textBody, htmlBody string) {
	textBody = "Hello " + data.UserName + ",\n\n" +
		"Your " + data.AppName + " account has been disabled by a moderator.\n\n"
	if data.Reason != "" {
		textBody += "Reason: " + data.Reason + "\n\n"
	}
	textBody += "If you believe this was done in error, please contact the moderators"
	if data.ContactEmail != "" {
		textBody += " at " + data.ContactEmail
	}
	textBody += "."

	var buf bytes.Buffer
	accountDisabledHTMLTmpl.Execute(&buf, data)
	htmlBody = buf.String()

	return textBody, htmlBody
}

var verificationHTMLTmpl = template.Must(template.New("verify_email").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Confirm Your Email</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
          <tr>
            <td style="padding: 32px 32px 24px 32px; text-align: center; border-bottom: 1px solid #e4e4e7;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #18181b;">{{.AppName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b;">Confirm Your Email</h2>
              <p style="margin: 0 0 16px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Hello {{.UserName}},
              </p>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Welcome to {{.AppName}}! Click the button below to confirm your university email address and activate your account.
              </p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center" style="padding: 8px 0 24px 0;">
                    <a href="{{.VerifyURL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 15px; font-weight: 600; border-radius: 6px;">Confirm Email</a>
                  </td>
                </tr>
              </table>
              <p style="margin: 0 0 16px 0; font-size: 14px; line-height: 1.6; color: #71717a;">
                This link will expire in <strong>{{.ExpiryHrs}} hours</strong>.
              </p>
              <p style="margin: 0; font-size: 14px; line-height: 1.6; color: #71717a;">
                If you did not register, you can safely ignore this email.
              </p>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #fafafa; border-top: 1px solid #e4e4e7; border-radius: 0 0 8px 8px;">
              <p style="margin: 0 0 8px 0; font-size: 12px; color: #a1a1aa; text-align: center;">
                If the button doesn't work, copy and paste this link into your browser:
              </p>
              <p style="margin: 0; font-size: 12px; color: #4f46e5; text-align: center; word-break: break-all;">
                {{.VerifyURL}}
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

var passwordChangedHTMLTmpl = template.Must(template.New("password_changed").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Password Changed</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
          <tr>
            <td style="padding: 32px 32px 24px 32px; text-align: center; border-bottom: 1px solid #e4e4e7;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #18181b;">{{.AppName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b; text-align: center;">Password Changed</h2>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Your {{.AppName}} password has been successfully changed.
              </p>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                <strong>If you made this change</strong>, you can safely ignore this email.
              </p>
              <div style="padding: 16px; background-color: #fef2f2; border-radius: 6px; border-left: 4px solid #ef4444; margin-bottom: 24px;">
                <p style="margin: 0; font-size: 14px; line-height: 1.6; color: #991b1b;">
                  <strong>If you did NOT make this change</strong>, your account may have been compromised. Please change your password immediately.
                </p>
              </div>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center" style="padding: 0 0 24px 0;">
                    <a href="{{.LoginURL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 15px; font-weight: 600; border-radius: 6px;">Go to Login</a>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #fafafa; border-top: 1px solid #e4e4e7; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #a1a1aa; text-align: center;">
                This is an automated security notification. Please do not reply to this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

var accountDisabledHTMLTmpl = template.Must(template.New("account_disabled").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Account Disabled</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
          <tr>
            <td style="padding: 32px 32px 24px 32px; text-align: center; border-bottom: 1px solid #e4e4e7;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #18181b;">{{.AppName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b; text-align: center;">Account Disabled</h2>
              <p style="margin: 0 0 16px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Hello {{.UserName}},
              </p>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Your {{.AppName}} account has been disabled by a moderator.
              </p>
              {{if .Reason}}
              <div style="padding: 16px; background-color: #f4f4f5; border-radius: 6px; margin-bottom: 24px;">
                <p style="margin: 0; font-size: 14px; color: #52525b;">
                  <strong>Reason:</strong> {{.Reason}}
                </p>
              </div>
              {{end}}
              <p style="margin: 0; font-size: 14px; line-height: 1.6; color: #71717a;">
                If you believe this was done in error, please contact the moderators{{if .ContactEmail}} at <a href="mailto:{{.ContactEmail}}" style="color: #4f46e5;">{{.ContactEmail}}</a>{{end}}.
              </p>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #fafafa; border-top: 1px solid #e4e4e7; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #a1a1aa; text-align: center;">
                This is an automated notification from {{.AppName}}.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

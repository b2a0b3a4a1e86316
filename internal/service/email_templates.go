package service

import (
	"fmt"
	"html"
)

func confirmationEmailTemplate(name, confirmURL, appName string) (string, string, string) {
	subject := fmt.Sprintf("Confirm your %s account", appName)

	text := fmt.Sprintf(`Hi %s,

Welcome to %s! Please confirm your email address by opening this link:
%s

This link is valid for 24 hours.

If you didn't sign up, you can safely ignore this email.

Best,
The %s Team`, name, appName, confirmURL, appName)

	body := fmt.Sprintf(`<h1>Welcome to %s!</h1>
<p>Hi %s,</p>
<p>Click the link below to confirm your email address:</p>
<p><a href="%s">Confirm email</a></p>
<p>This link is valid for 24 hours.</p>
<p>If you didn't sign up, you can safely ignore this email.</p>`,
		html.EscapeString(appName),
		html.EscapeString(name),
		html.EscapeString(confirmURL),
	)

	return subject, text, body
}

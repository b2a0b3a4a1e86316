// Package pages holds the few server-rendered pages. Everything else is served
// by the static marketing site.
package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:32rem;margin:4rem auto;padding:0 1rem;color:#111}` +
	`h1{font-size:1.5rem}a{color:#2563eb}`

// ConfirmSuccess is shown after an email address was confirmed.
func ConfirmSuccess(appName, loginURL string) templ.Component {
	return layout(appName+" - Account confirmed", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>Account confirmed!</h1><p>You can now sign in: <a href="%s">Sign in</a></p>`,
			templ.EscapeString(loginURL))
		return err
	}))
}

// ConfirmError is shown for unknown, consumed or expired confirmation links.
func ConfirmError(appName, message string) templ.Component {
	return layout(appName+" - Confirmation failed", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>Confirmation failed</h1><p>%s</p>`, templ.EscapeString(message))
		return err
	}))
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		nonceAttr := ""
		if nonce := templ.GetNonce(ctx); nonce != "" {
			nonceAttr = fmt.Sprintf(` nonce="%s"`, templ.EscapeString(nonce))
		}

		_, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title>`+
			`<style%s>%s</style></head><body>`,
			templ.EscapeString(title), nonceAttr, pageStyle)
		if err != nil {
			return err
		}

		err = body.Render(ctx, w)
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, `</body></html>`)
		return err
	})
}

package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
)

var (
	verifyTmpl = template.Must(template.New("verify").Parse(`
<div style="font-family: Arial; padding: 20px; background-color: #f9f9f9; border-radius: 8px;">
  <h2 style="color: #333;">Verify Your Email</h2>
  <p style="color: #555;">Click the button below to verify your email:</p>
  <a href="{{.URL}}" style="display: inline-block; padding: 10px 20px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px;">Verify Email</a>
  <p style="color: #888; font-size: 12px; margin-top: 10px;">If you didn't request this, ignore this email.</p>
</div>`))

	resetTmpl = template.Must(template.New("reset").Parse(`
<div style="font-family: Arial; padding: 20px; background-color: #f9f9f9; border-radius: 8px;">
  <h2 style="color: #333;">Reset Your Password</h2>
  <p style="color: #555;">Click the button below to reset your password:</p>
  <a href="{{.URL}}" style="display: inline-block; padding: 10px 20px; background-color: #FF5722; color: white; text-decoration: none; border-radius: 5px;">Reset Password</a>
  <p style="color: #888; font-size: 12px; margin-top: 10px;">If you didn't request this, ignore this email.</p>
</div>`))

	trackingTmpl = template.Must(template.New("tracking").Parse(`
<div style="font-family: Arial; padding: 20px; background-color: #f9f9f9; border-radius: 8px;">
  <h2 style="color: #333;">Thank you for your order</h2>
  <p style="color: #555;">Your tracking number is <strong>{{.TrackingID}}</strong>.</p>
  <a href="{{.URL}}" style="display: inline-block; padding: 10px 20px; background-color: #2196F3; color: white; text-decoration: none; border-radius: 5px;">Track Order</a>
</div>`))
)

// Links holds the public base URLs used in email links.
type Links struct {
	ClientURL  string
	BackendURL string
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: failed to render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// VerificationMessage links to the backend endpoint that consumes token.
func (l Links) VerificationMessage(email, token string) (Message, error) {
	u := l.BackendURL + "/api/auth/verify-email?token=" + url.QueryEscape(token)
	body, err := render(verifyTmpl, struct{ URL string }{u})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "Verify your email", HTML: body}, nil
}

// PasswordResetMessage links to the client's reset form.
func (l Links) PasswordResetMessage(email, token string) (Message, error) {
	u := l.ClientURL + "/reset-password?token=" + url.QueryEscape(token) + "&email=" + url.QueryEscape(email)
	body, err := render(resetTmpl, struct{ URL string }{u})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "Reset your password", HTML: body}, nil
}

// OrderTrackingMessage tells the buyer how to follow their order.
func (l Links) OrderTrackingMessage(email string, trackingID int64) (Message, error) {
	id := strconv.FormatInt(trackingID, 10)
	body, err := render(trackingTmpl, struct {
		TrackingID string
		URL        string
	}{id, l.ClientURL + "/track-order/" + id})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "Your order tracking number", HTML: body}, nil
}

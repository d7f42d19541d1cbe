package email

import (
	"bytes"
	"html/template"
	"strings"
)

// Message es un correo ya renderizado.
type Message struct {
	Subject string
	HTML    string
}

const actionLayout = `<div style="max-width: 500px; margin: 50px auto; background-color: #f8fafc; padding: 30px; border-radius: 10px; font-family: Arial, sans-serif; color: #333333;">
  <h1 style="color: #007BFF; font-size: 28px; text-align: center;">Hello {{.Name}}!</h1>
  <p style="font-size: 18px; line-height: 1.6; text-align: center;">{{.Intro}}</p>
  <div style="text-align: center;">
    <a href="{{.Link}}" style="display: inline-block; background-color: #007BFF; color: #ffffff; padding: 14px 28px; border-radius: 6px; text-decoration: none; font-weight: bold;">{{.Action}}</a>
  </div>
</div>
`

var actionTemplate = template.Must(template.New("action").Parse(actionLayout))

type actionData struct {
	Name   string
	Intro  string
	Link   string
	Action string
}

func VerificationEmail(firstName, link string) Message {
	return Message{
		Subject: "Verify your account",
		HTML: render(actionData{
			Name:   displayName(firstName),
			Intro:  "Thanks for signing up. Click the link below to verify your account.",
			Link:   link,
			Action: "Verify account",
		}),
	}
}

func PasswordResetEmail(firstName, link string) Message {
	return Message{
		Subject: "Reset your password",
		HTML: render(actionData{
			Name:   displayName(firstName),
			Intro:  "Click the link below to choose a new password. If you did not ask for this, ignore this email.",
			Link:   link,
			Action: "Reset password",
		}),
	}
}

func render(data actionData) string {
	var buf bytes.Buffer
	if err := actionTemplate.Execute(&buf, data); err != nil {
		// El template es fijo; solo falla si el writer falla.
		return data.Intro + " " + data.Link
	}
	return buf.String()
}

func displayName(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		return "there"
	}
	return strings.ToUpper(name)
}

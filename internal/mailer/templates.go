package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"gigboard/internal/models"
)

const (
	TemplateVerifyEmail         = "verify_email"
	TemplatePasswordReset       = "password_reset"
	TemplateNewApplication      = "new_application"
	TemplateApplicationResponse = "application_response"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "verify_email"}}<p>Hi {{.Name}},</p>
<p>Welcome to Gigboard. Please confirm your email address:</p>
<p><a href="{{.Link}}">Verify email</a></p>
<p>The link expires in 24 hours.</p>{{end}}
{{define "password_reset"}}<p>Hi {{.Name}},</p>
<p>We received a request to reset your password.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>The link expires in 10 minutes. If you did not ask for this, ignore this email.</p>{{end}}
{{define "new_application"}}<p>Hi {{.Name}},</p>
<p>{{.Other}} applied to your service "{{.Service}}":</p>
<blockquote>{{.Body}}</blockquote>
<p><a href="{{.Link}}">Review applications</a></p>{{end}}
{{define "application_response"}}<p>Hi {{.Name}},</p>
<p>Your application to "{{.Service}}" was {{.Status}}.</p>
{{if .Body}}<blockquote>{{.Body}}</blockquote>{{end}}
<p><a href="{{.Link}}">View your applications</a></p>{{end}}
`))

type templateData struct {
	Name    string
	Other   string
	Service string
	Status  string
	Body    string
	Link    string
}

// Links builds frontend URLs embedded in emails.
type Links struct {
	FrontendURL string
}

func (l Links) url(path string) string {
	return strings.TrimRight(l.FrontendURL, "/") + path
}

func render(name, to, subject string, data templateData) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String(), Template: name}, nil
}

// VerifyEmail asks user to confirm their address with token.
func (l Links) VerifyEmail(user *models.User, token string) (Message, error) {
	return render(TemplateVerifyEmail, user.Email, "Verify your email", templateData{
		Name: user.FirstName,
		Link: l.url("/verify-email/" + token),
	})
}

// PasswordReset sends user a reset link carrying token.
func (l Links) PasswordReset(user *models.User, token string) (Message, error) {
	return render(TemplatePasswordReset, user.Email, "Password reset", templateData{
		Name: user.FirstName,
		Link: l.url("/reset-password/" + token),
	})
}

// NewApplication tells expert that client applied to service.
func (l Links) NewApplication(expert, client *models.User, service *models.Service, message string) (Message, error) {
	return render(TemplateNewApplication, expert.Email, "New application for "+service.Title, templateData{
		Name:    expert.FirstName,
		Other:   client.FullName(),
		Service: service.Title,
		Body:    message,
		Link:    l.url(fmt.Sprintf("/services/%d/applications", service.ID)),
	})
}

// ApplicationResponse tells client how the expert answered.
func (l Links) ApplicationResponse(client *models.User, service *models.Service, status models.ApplicationStatus, response string) (Message, error) {
	return render(TemplateApplicationResponse, client.Email, "Your application was "+string(status), templateData{
		Name:    client.FirstName,
		Service: service.Title,
		Status:  string(status),
		Body:    response,
		Link:    l.url("/applications"),
	})
}

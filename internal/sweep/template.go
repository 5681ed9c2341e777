package sweep

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/renewhub/renewhub/internal/models"
)

var reminderTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background-color:#f4f4f5;font-family:Arial,Helvetica,sans-serif;">
  <div style="max-width:600px;margin:0 auto;padding:24px;">
    <div style="background-color:#ffffff;border-radius:8px;overflow:hidden;">
      <div style="background-color:{{.PrimaryColor}};padding:24px;text-align:center;">
        {{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.CompanyName}}" style="max-height:48px;margin-bottom:8px;">{{end}}
        <h1 style="color:#ffffff;margin:0;font-size:20px;">{{.CompanyName}}</h1>
        <p style="color:#ffffff;margin:4px 0 0;font-size:13px;opacity:0.85;">{{.CompanyTagline}}</p>
      </div>
      <div style="padding:24px;">
        <p style="font-size:15px;color:#18181b;">Hi {{.RecipientName}},</p>
        <p style="font-size:15px;color:#18181b;">{{.Headline}}</p>
        <table style="width:100%;border-collapse:collapse;margin:16px 0;">
          <tr>
            <td style="padding:8px 0;color:#71717a;font-size:13px;">Service</td>
            <td style="padding:8px 0;color:#18181b;font-size:13px;text-align:right;"><strong>{{.ServiceName}}</strong></td>
          </tr>
          {{if .Provider}}<tr>
            <td style="padding:8px 0;color:#71717a;font-size:13px;">Provider</td>
            <td style="padding:8px 0;color:#18181b;font-size:13px;text-align:right;">{{.Provider}}</td>
          </tr>{{end}}
          {{if .ExpiryDate}}<tr>
            <td style="padding:8px 0;color:#71717a;font-size:13px;">Expiry date</td>
            <td style="padding:8px 0;color:#18181b;font-size:13px;text-align:right;">{{.ExpiryDate}}</td>
          </tr>{{end}}
          <tr>
            <td style="padding:8px 0;color:#71717a;font-size:13px;">Days remaining</td>
            <td style="padding:8px 0;color:{{.UrgencyColor}};font-size:13px;text-align:right;"><strong>{{.DaysLabel}}</strong></td>
          </tr>
        </table>
        <p style="font-size:13px;color:#71717a;">Please renew this service before it expires to avoid interruption.</p>
      </div>
      <div style="padding:16px 24px;background-color:#fafafa;border-top:1px solid #e4e4e7;">
        <p style="font-size:12px;color:#a1a1aa;margin:0;">This reminder was sent automatically by {{.CompanyName}}.</p>
      </div>
    </div>
  </div>
</body>
</html>`))

type reminderData struct {
	CompanyName    string
	CompanyTagline string
	LogoURL        string
	PrimaryColor   string
	RecipientName  string
	Headline       string
	ServiceName    string
	Provider       string
	ExpiryDate     string
	DaysLabel      string
	UrgencyColor   string
}

// renderReminder builds the subject and HTML body for a reminder email.
func renderReminder(settings models.AppSettings, svc *models.Service, recipientName string, daysLeft int) (string, string, error) {
	var subject, headline, daysLabel, urgency string
	switch {
	case daysLeft < 0:
		subject = fmt.Sprintf("%s has expired", svc.Name)
		headline = fmt.Sprintf("Your service %q expired %d day(s) ago.", svc.Name, -daysLeft)
		daysLabel = fmt.Sprintf("Expired %d day(s) ago", -daysLeft)
		urgency = "#dc2626"
	case daysLeft == 0:
		subject = fmt.Sprintf("%s expires today", svc.Name)
		headline = fmt.Sprintf("Your service %q expires today.", svc.Name)
		daysLabel = "Expires today"
		urgency = "#dc2626"
	default:
		subject = fmt.Sprintf("%s expires in %d day(s)", svc.Name, daysLeft)
		headline = fmt.Sprintf("Your service %q expires in %d day(s).", svc.Name, daysLeft)
		daysLabel = fmt.Sprintf("%d day(s)", daysLeft)
		if daysLeft <= 7 {
			urgency = "#ea580c"
		} else {
			urgency = "#0891b2"
		}
	}

	if strings.TrimSpace(recipientName) == "" {
		recipientName = "there"
	}

	primary := settings.PrimaryColor
	if primary == "" {
		primary = "#06b6d4"
	}

	data := reminderData{
		CompanyName:    settings.CompanyName,
		CompanyTagline: settings.CompanyTagline,
		LogoURL:        settings.LogoURL,
		PrimaryColor:   primary,
		RecipientName:  recipientName,
		Headline:       headline,
		ServiceName:    svc.Name,
		Provider:       svc.Provider,
		ExpiryDate:     svc.ExpiryDate,
		DaysLabel:      daysLabel,
		UrgencyColor:   urgency,
	}

	var buf bytes.Buffer
	if err := reminderTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("sweep: render reminder: %w", err)
	}
	return subject, buf.String(), nil
}

// renderTestEmail builds the body used by the settings test-email endpoint.
func renderTestEmail(settings models.AppSettings) (string, string) {
	company := settings.CompanyName
	if company == "" {
		company = "Service Renewal Hub"
	}
	subject := fmt.Sprintf("%s test email", company)
	html := fmt.Sprintf(
		"<p>This is a test email from <strong>%s</strong>.</p><p>Your %s email configuration is working.</p>",
		template.HTMLEscapeString(company),
		template.HTMLEscapeString(settings.EmailProvider),
	)
	return subject, html
}

package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ru-digital/product-estimator/internal/models"
)

// SendEmailAPI is the slice of the SESv2 client used here.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService tells the shop about newly saved estimates via AWS SES (SESv2 API)
type EmailService struct {
	client    SendEmailAPI
	fromEmail string
	toEmail   string
}

// NewEmailService builds the SES client from the default AWS config (role-based).
func NewEmailService(ctx context.Context, region, fromEmail, toEmail string) (*EmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &EmailService{client: sesv2.NewFromConfig(cfg), fromEmail: fromEmail, toEmail: toEmail}, nil
}

// NewEmailServiceWithClient is used by tests and callers that manage their own client.
func NewEmailServiceWithClient(client SendEmailAPI, fromEmail, toEmail string) *EmailService {
	return &EmailService{client: client, fromEmail: fromEmail, toEmail: toEmail}
}

// EstimateSaved sends the new-estimate email.
func (e *EmailService) EstimateSaved(ctx context.Context, est models.Estimate) error {
	subject := fmt.Sprintf("New estimate #%d", est.ID)
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.fromEmail),
		Destination:      &sestypes.Destination{ToAddresses: []string{e.toEmail}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body:    &sestypes.Body{Html: &sestypes.Content{Data: aws.String(estimateHTML(est))}},
			},
		},
	}
	if est.Email != "" {
		input.ReplyToAddresses = []string{est.Email}
	}
	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func estimateHTML(est models.Estimate) string {
	var b strings.Builder
	b.WriteString("<h2>New estimate saved</h2><table>")
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", label, html.EscapeString(value))
	}
	row("Estimate", fmt.Sprintf("#%d", est.ID))
	row("Name", est.Name)
	row("Email", est.Email)
	row("Phone", est.PhoneNumber)
	row("Postcode", est.Postcode)
	row("Range", fmt.Sprintf("%.2f – %.2f", est.TotalMin, est.TotalMax))
	row("Notes", est.Notes)
	b.WriteString("</table>")
	return b.String()
}

package notify

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/require"

	"github.com/ru-digital/product-estimator/internal/models"
)

type fakeSES struct{ input *sesv2.SendEmailInput }

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	return &sesv2.SendEmailOutput{}, nil
}

func TestEstimateSaved_BuildsEmail(t *testing.T) {
	fake := &fakeSES{}
	svc := NewEmailServiceWithClient(fake, "noreply@shop.example", "sales@shop.example")

	err := svc.EstimateSaved(context.Background(), models.Estimate{
		ID: 9, Name: "Jo <b>", Email: "jo@x.com", TotalMin: 10, TotalMax: 20,
	})
	require.NoError(t, err)
	require.Equal(t, "noreply@shop.example", aws.ToString(fake.input.FromEmailAddress))
	require.Equal(t, []string{"sales@shop.example"}, fake.input.Destination.ToAddresses)
	require.Equal(t, []string{"jo@x.com"}, fake.input.ReplyToAddresses)
	require.Equal(t, "New estimate #9", aws.ToString(fake.input.Content.Simple.Subject.Data))

	body := aws.ToString(fake.input.Content.Simple.Body.Html.Data)
	require.Contains(t, body, "Jo &lt;b&gt;")
	require.Contains(t, body, "10.00 – 20.00")
	require.NotContains(t, body, "Phone")
}

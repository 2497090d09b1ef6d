package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/veridian-labs/veridian/pkg/errx"
)

// SESNotifier delivers events by email through AWS SES.
type SESNotifier struct {
	client *ses.Client
	sender string
}

// NewSESNotifier creates an SES-backed notifier.
func NewSESNotifier(client *ses.Client, sender string) *SESNotifier {
	return &SESNotifier{client: client, sender: sender}
}

// Send emails the event to the principal.
func (n *SESNotifier) Send(ctx context.Context, event Event) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{event.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject(event)),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(body(event)),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return errx.Wrap(err, "failed to send notification email", errx.TypeExternal).
			WithDetail("kind", string(event.Kind))
	}
	return nil
}

package ses

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"njcrashes/internal/domain"
	"njcrashes/internal/notify"
	"njcrashes/internal/port"
)

type sesNotifier struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	recipients  []string
}

// NewSESNotifier creates a BatchNotifier that emails the batch report.
func NewSESNotifier(region, fromAddress, fromName string, recipients []string) (port.BatchNotifier, error) {
	if len(recipients) == 0 {
		return nil, errors.New("ses notifier: no recipients configured")
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesNotifier{
		client:      sesv2.NewFromConfig(cfg),
		fromAddress: fromAddress,
		fromName:    fromName,
		recipients:  recipients,
	}, nil
}

func (s *sesNotifier) NotifyBatch(ctx context.Context, runs []domain.IngestRun) error {
	if len(runs) == 0 {
		return nil
	}
	subject := notify.Subject(runs)
	htmlBody := notify.HTMLBody(runs)
	textBody := notify.TextBody(runs)
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

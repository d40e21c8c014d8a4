package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/firmahq/firma/internal/models"
)

// MilestoneNotifier dispatches milestone-crossing notifications to the
// petition creator. Dispatch is fire-and-forget from the commit stage's
// perspective: a failure never rolls back the signature.
type MilestoneNotifier interface {
	NotifyMilestone(ctx context.Context, petition *models.Petition, newCount, thresholdPct int) error
}

// SESMilestoneNotifier emails the petition creator via AWS SES.
type SESMilestoneNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

func NewSESMilestoneNotifier(region, fromAddress string, logger *slog.Logger) (*SESMilestoneNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESMilestoneNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

func (n *SESMilestoneNotifier) NotifyMilestone(ctx context.Context, petition *models.Petition, newCount, thresholdPct int) error {
	subject := fmt.Sprintf("Your petition reached %d%% of its goal", thresholdPct)
	textBody := fmt.Sprintf(`Good news!

Your petition %q just passed %d%% of its signature goal: it now has %d of %d signatures.

Share it to keep the momentum going.
`, petition.Title, thresholdPct, newCount, petition.TargetSignatures)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{petition.CreatorEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send milestone notification via SES",
			slog.String("petition_id", petition.ID.String()),
			slog.Int("threshold_pct", thresholdPct),
			slog.Any("error", err))
		return fmt.Errorf("failed to send milestone email: %w", err)
	}

	n.logger.Info("milestone notification sent",
		slog.String("petition_id", petition.ID.String()),
		slog.Int("threshold_pct", thresholdPct),
		slog.String("message_id", *result.MessageId))

	return nil
}

// LogMilestoneNotifier only logs milestones. Used when email dispatch is
// disabled (development, tests).
type LogMilestoneNotifier struct {
	Logger *slog.Logger
}

func (n *LogMilestoneNotifier) NotifyMilestone(_ context.Context, petition *models.Petition, newCount, thresholdPct int) error {
	n.Logger.Info("milestone crossed",
		slog.String("petition_id", petition.ID.String()),
		slog.Int("new_count", newCount),
		slog.Int("threshold_pct", thresholdPct))
	return nil
}

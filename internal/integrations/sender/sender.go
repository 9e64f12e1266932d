// Package sender delivers rendered notifications.
package sender

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Message is a fully rendered notification for one recipient.
type Message struct {
	RecipientUserID string
	RecipientEmail  string
	Subject         string
	HTMLBody        string
	TextBody        string
	// NotificationType is carried as a message tag when set.
	NotificationType string
}

type Receipt struct {
	MessageID     string
	CorrelationID string
}

type Sender interface {
	Send(ctx context.Context, msg *Message) (*Receipt, error)
}

// SESService is the subset of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Config struct {
	FromEmail        string
	FromName         string
	ConfigurationSet string
	// MaxSendRate is messages per second; zero disables limiting.
	MaxSendRate float64
}

// SESSender sends email through SES, waiting on a token bucket sized to
// the account send rate.
type SESSender struct {
	config  Config
	client  SESService
	limiter *rate.Limiter
}

func NewSESSender(cfg Config, client SESService) *SESSender {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.MaxSendRate > 0 {
		burst := int(cfg.MaxSendRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxSendRate), burst)
	}
	return &SESSender{config: cfg, client: client, limiter: limiter}
}

func (s *SESSender) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if msg == nil || msg.RecipientEmail == "" {
		return nil, fmt.Errorf("message has no recipient")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("send rate wait: %w", err)
	}

	correlationID := uuid.New().String()
	tags := []types.MessageTag{
		{Name: aws.String("correlation_id"), Value: aws.String(correlationID)},
	}
	if msg.RecipientUserID != "" {
		tags = append(tags, types.MessageTag{Name: aws.String("user_id"), Value: aws.String(tagValue(msg.RecipientUserID))})
	}
	if msg.NotificationType != "" {
		tags = append(tags, types.MessageTag{Name: aws.String("notification_type"), Value: aws.String(tagValue(msg.NotificationType))})
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.RecipientEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")},
				Html: &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(s.source()),
		Tags:   tags,
	}
	if s.config.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.config.ConfigurationSet)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("ses send email: %w", err)
	}

	return &Receipt{MessageID: aws.ToString(out.MessageId), CorrelationID: correlationID}, nil
}

func (s *SESSender) source() string {
	if s.config.FromName == "" {
		return s.config.FromEmail
	}
	return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
}

// SES tag values allow only alphanumerics, '_', '-', '.', '@'.
var invalidTagChars = regexp.MustCompile(`[^A-Za-z0-9_.@-]`)

func tagValue(s string) string {
	s = invalidTagChars.ReplaceAllString(s, "_")
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

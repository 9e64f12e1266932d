// Package audit publishes a record of every notification that was sent.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Event is the audit message body.
type Event struct {
	RecordID         string `json:"recordId"`
	Database         string `json:"databaseId"`
	Collection       string `json:"collectionId"`
	Kind             string `json:"kind"`
	NotificationType string `json:"notificationType"`
	Fingerprint      string `json:"fingerprint"`
	RecipientUserID  string `json:"userId"`
	MessageID        string `json:"messageId,omitempty"`
	CorrelationID    string `json:"correlationId,omitempty"`
	SentAt           string `json:"sentAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher sends events to a single topic.
type SNSPublisher struct {
	client   SNSService
	topicARN string
}

func NewSNSPublisher(client SNSService, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

func (p *SNSPublisher) Publish(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Kind),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSPublisherPublishSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "sns",
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      logger.NopLogger{},
	}

	if err := pub.Publish(context.Background(), testNotification()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["source"]
	if !ok || aws.ToString(attr.StringValue) != "https://example.com/feed" {
		t.Fatalf("source attribute missing or wrong: %#v", attr)
	}
	if aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"item_id":"a1"`) {
		t.Fatalf("Message missing item_id: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherPublishError(t *testing.T) {
	pub := &snsPublisher{
		id:       "sns",
		topicARN: "arn:aws:sns:::topic",
		client:   &fakeSNSClient{err: errors.New("boom")},
		log:      logger.NopLogger{},
	}

	if err := pub.Publish(context.Background(), testNotification()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

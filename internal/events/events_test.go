package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func TestNewEvent(t *testing.T) {
	a := NewEvent(TypeUserRegistered, map[string]any{"user_id": 1})
	b := NewEvent(TypeUserRegistered, nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, TypeUserRegistered, a.Type)
	assert.False(t, a.OccurredAt.IsZero())
}

func TestSNSPublisher_Publish(t *testing.T) {
	client := new(mockSNS)
	publisher := NewSNSPublisher(client, "arn:aws:sns:us-east-1:000000000000:accounts")
	event := NewEvent(TypeUserRegistered, map[string]any{"username": "alice"})

	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var decoded Event
		if err := json.Unmarshal([]byte(aws.ToString(in.Message)), &decoded); err != nil {
			return false
		}
		return aws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:000000000000:accounts" &&
			decoded.ID == event.ID &&
			aws.ToString(in.MessageAttributes["event_type"].StringValue) == TypeUserRegistered
	})).Return(&sns.PublishOutput{}, nil)

	require.NoError(t, publisher.Publish(context.Background(), event))
	client.AssertExpectations(t)
}

func TestSNSPublisher_PublishError(t *testing.T) {
	client := new(mockSNS)
	publisher := NewSNSPublisher(client, "arn:topic")

	client.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := publisher.Publish(context.Background(), NewEvent(TypeUserLoggedIn, nil))
	assert.ErrorContains(t, err, "throttled")
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, publisher.Publish(context.Background(), NewEvent(TypeCartCarriedOver, map[string]any{"rows": 2})))
	assert.Contains(t, buf.String(), `"event_type":"cart.carried_over"`)
	assert.Contains(t, buf.String(), `"rows":2`)
}

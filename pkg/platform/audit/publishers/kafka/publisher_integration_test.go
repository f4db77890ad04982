//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	platformkafka "xftledger/internal/platform/kafka"
	id "xftledger/pkg/domain"
	audit "xftledger/pkg/platform/audit"
	kafkapublisher "xftledger/pkg/platform/audit/publishers/kafka"
	"xftledger/pkg/testutil/containers"
)

func TestPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	broker := containers.NewRedpandaContainer(t)
	const topic = "ledger.audit.test"

	producer, err := platformkafka.Connect(ctx, []string{broker.Broker}, topic)
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	actor, err := id.ParseAddress("0xaa00000000000000000000000000000000000001")
	require.NoError(t, err)
	subject, err := id.ParseAddress("0xbb00000000000000000000000000000000000002")
	require.NoError(t, err)

	publisher := kafkapublisher.NewPublisher(producer, topic)
	event := audit.Event{
		ID:        "evt-1",
		Category:  audit.CategoryCompliance,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Actor:     actor,
		Subject:   subject,
		Action:    string(audit.EventAccountsBlocked),
		Reason:    "sanctions hit",
	}
	require.NoError(t, publisher.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, subject.String(), string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event.ID, got.ID)
	require.Equal(t, event.Action, got.Action)
	require.Equal(t, event.Actor, got.Actor)
	require.Equal(t, event.Reason, got.Reason)
}

//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/audit/store/kafka"
	"badgepass/pkg/testutil/containers"
)

const topic = "badge-audit-test"

type KafkaStoreSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	client   *kgo.Client
	store    *kafka.Store
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.Require().NoError(s.redpanda.CreateTopic(context.Background(), topic))

	client, err := kafka.NewClient([]string{s.redpanda.Broker}, topic)
	s.Require().NoError(err)
	s.client = client
	s.store = kafka.NewStore(client, topic)
}

func (s *KafkaStoreSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *KafkaStoreSuite) TestAppendIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventBadgeIssued),
		BadgeID:  "b-integration",
	}))

	admin := kadm.NewClient(s.client)
	offsets, err := admin.ListEndOffsets(ctx, topic)
	s.Require().NoError(err)
	end, ok := offsets.Lookup(topic, 0)
	s.Require().True(ok)
	s.GreaterOrEqual(end.Offset, int64(1))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())

	var found bool
	fetches.EachRecord(func(r *kgo.Record) {
		var e audit.Event
		if json.Unmarshal(r.Value, &e) == nil && e.BadgeID == "b-integration" {
			found = true
		}
	})
	s.True(found)
}

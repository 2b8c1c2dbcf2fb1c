//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"numintel/internal/analysis/models"
	"numintel/internal/classify"
	"numintel/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	broker string
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
}

func (s *KafkaPublisherSuite) TestPublishedEventsAreConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "numintel.analysis.integration"
	p, err := NewKafkaPublisher([]string{s.broker}, topic)
	s.Require().NoError(err)
	defer p.Close()
	s.Require().NoError(p.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(p.EnsureTopic(ctx, 1, 1), "second call tolerates an existing topic")

	at := time.Date(2024, 10, 16, 12, 0, 0, 0, time.UTC)
	sent := []Event{
		FromRecord(models.NewRecord(classify.Classify(1009), at)),
		FromRecord(models.NewRecord(classify.Classify(1234567890), at)),
	}
	s.Require().NoError(p.Publish(ctx, sent...))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got []Event
	for len(got) < len(sent) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			var ev Event
			s.Require().NoError(json.Unmarshal(r.Value, &ev))
			s.Equal(ev.Number, string(r.Key))
			got = append(got, ev)
		})
	}

	s.Equal(sent[0].ID, got[0].ID)
	s.Equal("1009", got[0].Number)
	s.Equal(sent[1].ID, got[1].ID)
	s.Equal(classify.IDTypePhone, got[1].IDType)
}

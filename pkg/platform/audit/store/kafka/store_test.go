package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "badgepass/pkg/platform/audit"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestStoreAppendProducesKeyedJSON(t *testing.T) {
	producer := &recordingProducer{}
	store := NewStore(producer, "badge-audit")

	err := store.Append(context.Background(), audit.Event{
		Category:  audit.CategoryOperations,
		Action:    string(audit.EventCheckInRecorded),
		BadgeID:   "b1",
		SessionID: "keynote",
	})
	require.NoError(t, err)
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "badge-audit", rec.Topic)
	assert.Equal(t, []byte("b1"), rec.Key)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, "keynote", decoded.SessionID)
	assert.Contains(t, rec.Headers, kgo.RecordHeader{Key: "action", Value: []byte("checkin_recorded")})
}

func TestStoreAppendSurfacesProduceError(t *testing.T) {
	producer := &recordingProducer{err: errors.New("not leader for partition")}
	err := NewStore(producer, "badge-audit").Append(context.Background(), audit.Event{Action: "x"})
	assert.ErrorContains(t, err, "not leader")
}

package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	topics []string
}

func (r *recorder) Publish(_ context.Context, topic string, _ Event) {
	r.topics = append(r.topics, topic)
}

func TestMultiPublishesToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, b, Nop{}}

	m.Publish(context.Background(), TopicSaleCommitted, Event{Type: "sale"})

	assert.Equal(t, []string{TopicSaleCommitted}, a.topics)
	assert.Equal(t, []string{TopicSaleCommitted}, b.topics)
}

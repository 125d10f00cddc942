package main

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/avlor/fraudgate/internal/infrastructure/eventpublisher"
)

func TestNewPublisherWithoutBrokers(t *testing.T) {
	pub, closeFn := newPublisher(nil, "fraudgate.events", zerolog.Nop())
	defer closeFn()

	if _, ok := pub.(*eventpublisher.LogPublisher); !ok {
		t.Fatalf("expected log publisher when no brokers configured, got %T", pub)
	}
}

func TestNewPublisherWithBrokers(t *testing.T) {
	pub, closeFn := newPublisher([]string{"localhost:9092"}, "fraudgate.events", zerolog.Nop())
	defer closeFn()

	if _, ok := pub.(*eventpublisher.KafkaPublisher); !ok {
		t.Fatalf("expected kafka publisher when brokers configured, got %T", pub)
	}
}

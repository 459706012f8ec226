package eventbus

import "testing"

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish(KindPortfolio, map[string]float64{"balance_usd": 10000})

	msg := <-ch
	if msg.Kind != KindPortfolio {
		t.Fatalf("expected kind %q, got %q", KindPortfolio, msg.Kind)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	unsubscribe()

	b.Publish(KindLog, "hello")

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed after unsubscribe")
	}
}

func TestPublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	b := New()
	b.Publish(KindBotStatus, "running")
}

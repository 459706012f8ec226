package polymarket

import (
	"context"
	"testing"
	"time"
)

func TestParseStrikeFromText(t *testing.T) {
	tt := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"above phrasing", "Will BTC be above $65,000 at 3pm?", 65000, true},
		{"price to beat phrasing", "Price to beat: $64,500.50", 64500.50, true},
		{"strike price phrasing", "strike price $70000", 70000, true},
		{"no match", "Will BTC go up in the next hour?", 0, false},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseStrikeFromText(tc.text)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHas15MinuteTag(t *testing.T) {
	tt := []struct {
		name string
		tags []Tag
		want bool
	}{
		{"matches by slug", []Tag{{Slug: "15M"}}, true},
		{"matches by label", []Tag{{Label: "15M"}}, true},
		{"no 15m tag", []Tag{{Slug: "crypto"}, {Slug: "hourly"}}, false},
		{"no tags", nil, false},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := has15MinuteTag(tc.tags); got != tc.want {
				t.Fatalf("has15MinuteTag() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsBTCMarket(t *testing.T) {
	tt := []struct {
		name string
		m    Market
		want bool
	}{
		{"btc in question", Market{Question: "Will BTC be up at 3pm?"}, true},
		{"bitcoin in description", Market{Description: "Tracks the price of Bitcoin."}, true},
		{"case insensitive", Market{Question: "BITCOIN up or down"}, true},
		{"neither mentions it", Market{Question: "Will ETH be up?", Description: "Ethereum price market"}, false},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := isBTCMarket(tc.m); got != tc.want {
				t.Fatalf("isBTCMarket() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveMarketFallsBackToTagAndBTCMentionWhenSlugDoesNotMatch(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	endTime := now.Add(10 * time.Minute)

	ev := Event{
		Slug: "some-renamed-event-slug",
		Tags: []Tag{{Slug: "15M"}},
	}
	m := Market{
		Slug:             "some-renamed-event-slug",
		Question:         "Will Bitcoin be up in the next 15 minutes?",
		Description:      "BTC up/down market",
		EndDate:          endTime.Format(time.RFC3339),
		ClobTokenIDsRaw:  `["up-token","down-token"]`,
		OutcomesRaw:      `["Up","Down"]`,
		OutcomePricesRaw: `["0.55","0.45"]`,
	}

	rm, ok, err := resolveMarket(context.Background(), m, ev, nil, now)
	if err != nil {
		t.Fatalf("resolveMarket() error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the tag+BTC-mention fallback to accept the market")
	}
	if rm.StartTime.IsZero() || !rm.StartTime.Before(endTime) {
		t.Fatalf("expected a backed-into start time before the end time, got %v", rm.StartTime)
	}
}

func TestResolveMarketRejectsNonMatchingSlugWithoutTagOrBTCMention(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	endTime := now.Add(10 * time.Minute)

	ev := Event{Slug: "some-other-market-slug"}
	m := Market{
		Slug:             "some-other-market-slug",
		Question:         "Will ETH be up in the next 15 minutes?",
		EndDate:          endTime.Format(time.RFC3339),
		ClobTokenIDsRaw:  `["up-token","down-token"]`,
		OutcomesRaw:      `["Up","Down"]`,
		OutcomePricesRaw: `["0.55","0.45"]`,
	}

	_, ok, err := resolveMarket(context.Background(), m, ev, nil, now)
	if err != nil {
		t.Fatalf("resolveMarket() error: %v", err)
	}
	if ok {
		t.Fatalf("expected a non-BTC, untagged market with a non-canonical slug to be rejected")
	}
}

func TestMapOutcomes(t *testing.T) {
	tt := []struct {
		name      string
		outcomes  []string
		wantUp    int
		wantDown  int
	}{
		{"yes/no", []string{"Yes", "No"}, 0, 1},
		{"no/yes reversed", []string{"No", "Yes"}, 1, 0},
		{"up/down", []string{"Down", "Up"}, 1, 0},
		{"unrecognized defaults to index order", []string{"A", "B"}, 0, 1},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			up, down := mapOutcomes(tc.outcomes)
			if up != tc.wantUp || down != tc.wantDown {
				t.Fatalf("mapOutcomes() = (%d, %d), want (%d, %d)", up, down, tc.wantUp, tc.wantDown)
			}
		})
	}
}

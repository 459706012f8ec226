package polymarket

import (
	"context"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sdibella/btc15m/internal/oracle"
)

// slugPattern matches the venue's 15-minute BTC up/down slug family, e.g.
// "btc-updown-15m-1700000000".
var slugPattern = regexp.MustCompile(`^btc-updown-15m-(\d+)$`)

// strikePattern recovers a strike price from free-text market descriptions
// when the venue doesn't expose one as a structured field.
var strikePattern = regexp.MustCompile(`(?i)(?:higher than|above|price to beat|strike price|target).*?\$([\d,]+\.?\d*)`)

// ResolvedMarket is a fully resolved, tradeable 15-minute BTC market: slug,
// the two CLOB token IDs mapped to up/down, current outcome prices, and a
// strike price (parsed or backfilled from history).
type ResolvedMarket struct {
	ConditionID   string
	Slug          string
	Question      string
	UpTokenID     string
	DownTokenID   string
	UpPrice       float64
	DownPrice     float64
	Strike        float64
	StrikeFetched bool
	StartTime     time.Time
	EndTime       time.Time
}

// staleSlugAge is how old a slug's embedded timestamp can be before the
// market is rejected as abandoned/expired inventory Gamma hasn't pruned.
const staleSlugAge = time.Hour

// Discover fetches events, filters to the 15-minute BTC up/down family, and
// resolves each into a ResolvedMarket, skipping anything that fails the
// sanity checks from the original market-discovery logic: missing outcome
// prices, prices that don't sum close to 1, a stale slug, or an end time
// already in the past.
func Discover(ctx context.Context, c *Client, httpClient *http.Client) ([]ResolvedMarket, error) {
	events, err := c.DiscoverEvents(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var out []ResolvedMarket
	for _, ev := range events {
		for _, m := range ev.Markets {
			rm, ok, err := resolveMarket(ctx, m, ev, httpClient, now)
			if err != nil || !ok {
				continue
			}
			out = append(out, rm)
		}
	}
	return out, nil
}

func resolveMarket(ctx context.Context, m Market, ev Event, httpClient *http.Client, now time.Time) (ResolvedMarket, bool, error) {
	slug := m.Slug
	if slug == "" {
		slug = ev.Slug
	}

	endTime, err := time.Parse(time.RFC3339, m.EndDate)
	if err != nil {
		endTime, err = time.Parse(time.RFC3339, ev.EndDate)
		if err != nil {
			return ResolvedMarket{}, false, nil
		}
	}
	if !endTime.After(now) {
		return ResolvedMarket{}, false, nil
	}

	var startTime time.Time
	matches := slugPattern.FindStringSubmatch(slug)
	if matches != nil {
		startUnix, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return ResolvedMarket{}, false, nil
		}
		startTime = time.Unix(startUnix, 0)
		if now.Sub(startTime) > staleSlugAge {
			return ResolvedMarket{}, false, nil
		}
	} else if has15MinuteTag(ev.Tags) && isBTCMarket(m) {
		// Slug changed shape on the venue's side; the event still carries
		// the "15M" tag and clearly mentions BTC, so accept it without the
		// slug-embedded timestamp. 15-minute markets end exactly 15 minutes
		// after they start, so back into a start time from the end time
		// rather than rejecting a market we can otherwise trade.
		startTime = endTime.Add(-15 * time.Minute)
	} else {
		return ResolvedMarket{}, false, nil
	}

	tokenIDs, err := m.ClobTokenIDs()
	if err != nil || len(tokenIDs) != 2 {
		return ResolvedMarket{}, false, nil
	}
	outcomes, err := m.Outcomes()
	if err != nil || len(outcomes) != 2 {
		return ResolvedMarket{}, false, nil
	}
	prices, err := m.OutcomePrices()
	if err != nil || len(prices) != 2 {
		return ResolvedMarket{}, false, nil
	}
	if sum := prices[0] + prices[1]; sum < 0.95 || sum > 1.05 {
		return ResolvedMarket{}, false, nil
	}

	upIdx, downIdx := mapOutcomes(outcomes)
	if upIdx < 0 || downIdx < 0 {
		return ResolvedMarket{}, false, nil
	}

	rm := ResolvedMarket{
		ConditionID: m.ConditionID,
		Slug:        slug,
		Question:    m.Question,
		UpTokenID:   tokenIDs[upIdx],
		DownTokenID: tokenIDs[downIdx],
		UpPrice:     prices[upIdx],
		DownPrice:   prices[downIdx],
		StartTime:   startTime,
		EndTime:     endTime,
	}

	if strike, ok := parseStrikeFromText(m.Description); ok {
		rm.Strike = strike
		rm.StrikeFetched = true
	} else if strike, ok := parseStrikeFromText(m.Question); ok {
		rm.Strike = strike
		rm.StrikeFetched = true
	} else if httpClient != nil {
		k, err := oracle.KlineAt(ctx, httpClient, startTime)
		if err == nil {
			rm.Strike = k.Open
			rm.StrikeFetched = true
		}
	}

	return rm, true, nil
}

// has15MinuteTag reports whether the event carries the "15M" cadence tag,
// by slug or by label — Gamma has used either at different times.
func has15MinuteTag(tags []Tag) bool {
	for _, t := range tags {
		if t.Slug == "15M" || t.Label == "15M" {
			return true
		}
	}
	return false
}

// isBTCMarket reports whether the market's description or question
// mentions bitcoin/BTC, the fallback signal used when the slug no longer
// matches the canonical pattern.
func isBTCMarket(m Market) bool {
	desc := strings.ToLower(m.Description)
	title := strings.ToLower(m.Question)
	return strings.Contains(desc, "bitcoin") || strings.Contains(desc, "btc") ||
		strings.Contains(title, "bitcoin") || strings.Contains(title, "btc")
}

// mapOutcomes maps outcome labels to (upIndex, downIndex). Unrecognized
// label sets fall back to index 0 = up, 1 = down.
func mapOutcomes(outcomes []string) (int, int) {
	for i, label := range outcomes {
		switch strings.ToLower(label) {
		case "yes", "up", "long":
			return i, otherIndex(i)
		case "no", "down", "short":
			return otherIndex(i), i
		}
	}
	if len(outcomes) == 2 {
		return 0, 1
	}
	return -1, -1
}

func otherIndex(i int) int {
	if i == 0 {
		return 1
	}
	return 0
}

// parseStrikeFromText recovers a strike price from free text using the
// same expanded keyword set the original discovery logic matches against.
func parseStrikeFromText(text string) (float64, bool) {
	m := strikePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	cleaned := strings.ReplaceAll(m[1], ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || v <= 0 {
		return 0, false
	}
	return v, true
}

// SecondsRemaining is calculate_remaining_seconds ported directly: the
// gap between endTime and now, floored at zero.
func SecondsRemaining(endTime, now time.Time) float64 {
	secs := endTime.Sub(now).Seconds()
	if secs < 0 {
		return 0
	}
	return secs
}

// Package event parses and validates inbound trading reports into typed
// trade events.
//
// Primary numeric fields (cash, owned_shares, share_value,
// portfolio_value, pandl) must coerce cleanly or the whole event is
// rejected with ErrMalformedEvent. Secondary fields (quantity,
// price_per_share, cur_day, roi_percent, anchors) degrade to their zero
// value when absent or malformed: the dependent sub-feature is skipped
// but the event still applies.
package event

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedEvent is returned when a primary field cannot be coerced or
// the action is unknown. The event must not be applied.
var ErrMalformedEvent = errors.New("event: malformed trading report")

// numberRegex matches the first signed decimal number in free text.
var numberRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

var validActions = map[string]bool{
	"Start": true,
	"Buy":   true,
	"Sell":  true,
	"End":   true,
}

// Event is a normalized trading report. One per inbound message; folded
// into the account ledger and round log buffer, then discarded (a durable
// TradeActionRecord is persisted separately).
type Event struct {
	Action         string
	Quantity       decimal.Decimal
	PricePerShare  decimal.Decimal
	Cash           decimal.Decimal
	OwnedShares    decimal.Decimal
	ShareValue     decimal.Decimal
	PortfolioValue decimal.Decimal
	PandL          decimal.Decimal
	Time           string
	CurDay         int
	Asset          string
	ROIPercent     float64

	// Anchor is a positive numeric value opportunistically extracted from
	// the payload; HasAnchor reports whether one was found. At most one
	// anchor is extracted per event.
	Anchor    float64
	HasAnchor bool
}

// IsTrade reports whether the event is a Buy or Sell.
func (e *Event) IsTrade() bool {
	return e.Action == "Buy" || e.Action == "Sell"
}

// Normalize converts a raw payload into a typed Event.
// Returns an error wrapping ErrMalformedEvent when the action is unknown
// or a primary numeric field cannot be coerced.
func Normalize(payload map[string]any) (*Event, error) {
	action, _ := payload["action"].(string)
	if !validActions[action] {
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, action)
	}

	ev := &Event{Action: action}

	// Primary fields: all-or-nothing.
	primaries := []struct {
		key  string
		dest *decimal.Decimal
	}{
		{"cash", &ev.Cash},
		{"owned_shares", &ev.OwnedShares},
		{"share_value", &ev.ShareValue},
		{"portfolio_value", &ev.PortfolioValue},
		{"pandl", &ev.PandL},
	}
	for _, p := range primaries {
		d, ok := coerceDecimal(payload[p.key])
		if !ok {
			return nil, fmt.Errorf("%w: field %q", ErrMalformedEvent, p.key)
		}
		*p.dest = d
	}

	// Secondary fields: tolerate absence/malformation.
	if d, ok := coerceDecimal(payload["quantity"]); ok {
		ev.Quantity = d
	}
	if d, ok := coerceDecimal(payload["price_per_share"]); ok {
		ev.PricePerShare = d
	}
	if f, ok := coerceFloat(payload["cur_day"]); ok {
		ev.CurDay = int(f)
	}
	if f, ok := coerceFloat(payload["roi_percent"]); ok {
		ev.ROIPercent = f
	}
	if s, ok := payload["time"].(string); ok {
		ev.Time = s
	} else if v, present := payload["time"]; present {
		ev.Time = fmt.Sprint(v)
	}
	if s, ok := payload["asset"].(string); ok {
		ev.Asset = s
	}

	ev.Anchor, ev.HasAnchor = extractAnchor(payload)

	return ev, nil
}

// extractAnchor looks for a direct positive numeric "anchor" or
// "news_anchor" field, then falls back to the first signed decimal number
// in a free-text "news" field. Only positive values are accepted.
func extractAnchor(payload map[string]any) (float64, bool) {
	for _, key := range []string{"anchor", "news_anchor"} {
		if v, present := payload[key]; present {
			if f, ok := coerceFloat(v); ok && f > 0 {
				return f, true
			}
		}
	}

	text, ok := payload["news"].(string)
	if !ok || text == "" {
		return 0, false
	}
	match := numberRegex.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// coerceFloat converts JSON scalar representations to float64.
func coerceFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coerceDecimal converts JSON scalar representations to decimal.Decimal.
func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

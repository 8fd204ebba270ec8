package domain

import (
	"bytes"
	"fmt"
	"strconv"
)

// Channels identify the sampling cadence of a price stream. Fixed-rate
// channels encode their period in milliseconds; real_time is unconstrained.
const (
	ChannelRealTime = "real_time"
	ChannelDefault  = "fixed_rate@200ms"
)

// AssetTypes lists the asset classes served by the history catalog.
var AssetTypes = []string{"crypto", "fx", "equity", "metal", "rates", "commodity", "funding-rate"}

func IsAssetType(s string) bool {
	for _, t := range AssetTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Resolutions lists the candlestick bucket sizes accepted by the history
// service: minute multiples plus daily, weekly, and monthly calendar buckets.
var Resolutions = []string{"1", "5", "15", "30", "60", "120", "240", "360", "720", "D", "W", "M"}

func IsResolution(s string) bool {
	for _, r := range Resolutions {
		if s == r {
			return true
		}
	}
	return false
}

// Feed is one catalog entry of the history service. The numeric ID is the
// only stable join key against price observations; symbols are display
// labels and are not guaranteed unique across asset types.
type Feed struct {
	PythLazerID   int64   `json:"pyth_lazer_id"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Description   string  `json:"description"`
	AssetType     string  `json:"asset_type"`
	Exponent      int32   `json:"exponent"`
	MinChannel    string  `json:"min_channel"`
	State         string  `json:"state"`
	HermesID      *string `json:"hermes_id"`
	QuoteCurrency string  `json:"quote_currency"`
}

func (f *Feed) Validate() error {
	if f.PythLazerID <= 0 {
		return fmt.Errorf("feed missing pyth_lazer_id")
	}
	if f.Symbol == "" {
		return fmt.Errorf("feed %d missing symbol", f.PythLazerID)
	}
	if f.Name == "" {
		return fmt.Errorf("feed %d missing name", f.PythLazerID)
	}
	return nil
}

// OHLC series statuses as reported by the history service. no_data is a
// successful response for an empty range, not an error.
const (
	OHLCStatusOK     = "ok"
	OHLCStatusNoData = "no_data"
	OHLCStatusError  = "error"
)

// OHLCSeries carries parallel ordered sequences of equal length.
type OHLCSeries struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Open       []float64 `json:"o"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Close      []float64 `json:"c"`
	Volume     []float64 `json:"v"`
	ErrMsg     string    `json:"errmsg,omitempty"`
}

func (s *OHLCSeries) Validate() error {
	switch s.Status {
	case OHLCStatusOK, OHLCStatusNoData, OHLCStatusError:
	default:
		return fmt.Errorf("unknown OHLC status %q", s.Status)
	}
	n := len(s.Timestamps)
	if len(s.Open) != n || len(s.High) != n || len(s.Low) != n || len(s.Close) != n || len(s.Volume) != n {
		return fmt.Errorf("OHLC arrays are not parallel: t=%d o=%d h=%d l=%d c=%d v=%d",
			n, len(s.Open), len(s.High), len(s.Low), len(s.Close), len(s.Volume))
	}
	return nil
}

// FlexString decodes a JSON value that arrives as either a string or a
// number; numbers keep their decimal literal form. The history service
// reports the channel field both ways depending on the endpoint.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*s = ""
		return nil
	}
	if trimmed[0] == '"' {
		unquoted, err := strconv.Unquote(string(trimmed))
		if err != nil {
			return fmt.Errorf("invalid string value %s", trimmed)
		}
		*s = FlexString(unquoted)
		return nil
	}
	if _, err := strconv.ParseFloat(string(trimmed), 64); err != nil {
		return fmt.Errorf("expected string or number, got %s", trimmed)
	}
	*s = FlexString(trimmed)
	return nil
}

// PriceObservation is the canonical price shape shared by the history and
// router clients. All price-like values are integers scaled by 10^exponent;
// optional measurements are nil when the feed did not report them, and nil
// fields are omitted from serialized output rather than rendered as null.
type PriceObservation struct {
	PriceFeedID    int64      `json:"price_feed_id"`
	Channel        FlexString `json:"channel,omitempty"`
	PublishTime    *int64     `json:"publish_time,omitempty"`
	TimestampUs    *int64     `json:"timestamp_us,omitempty"`
	Price          *int64     `json:"price,omitempty"`
	BestBidPrice   *int64     `json:"best_bid_price,omitempty"`
	BestAskPrice   *int64     `json:"best_ask_price,omitempty"`
	Confidence     *int64     `json:"confidence,omitempty"`
	Exponent       *int32     `json:"exponent,omitempty"`
	PublisherCount *int32     `json:"publisher_count,omitempty"`

	// Derived display values; present iff the corresponding raw value is.
	DisplayPrice *float64 `json:"display_price,omitempty"`
	DisplayBid   *float64 `json:"display_bid,omitempty"`
	DisplayAsk   *float64 `json:"display_ask,omitempty"`
}

// ValidateHistorical checks the fields the history price endpoint is
// contractually required to populate.
func (p *PriceObservation) ValidateHistorical() error {
	if p.PriceFeedID <= 0 {
		return fmt.Errorf("observation missing price_feed_id")
	}
	if p.PublishTime == nil {
		return fmt.Errorf("observation for feed %d missing publish_time", p.PriceFeedID)
	}
	if p.Price == nil {
		return fmt.Errorf("observation for feed %d missing price", p.PriceFeedID)
	}
	return nil
}

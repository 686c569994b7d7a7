package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CoinGeckoSource adapts the public CoinGecko simple price API to the Source
// interface. Feed identifiers are mapped to CoinGecko asset ids through the
// supplied idMap; unmapped feeds fall back to the lowercased identifier.
type CoinGeckoSource struct {
	client   HTTPDoer
	endpoint string
	idMap    map[string]string
}

const defaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// NewCoinGeckoSource constructs a new adapter. When client is nil
// http.DefaultClient is used.
func NewCoinGeckoSource(client HTTPDoer, endpoint string, idMap map[string]string) *CoinGeckoSource {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = defaultCoinGeckoEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	mapped := make(map[string]string, len(idMap))
	for k, v := range idMap {
		mapped[normaliseFeed(k)] = strings.TrimSpace(v)
	}
	return &CoinGeckoSource{client: client, endpoint: ep, idMap: mapped}
}

func (s *CoinGeckoSource) assetID(feed string) string {
	if s == nil {
		return ""
	}
	if id, ok := s.idMap[normaliseFeed(feed)]; ok && id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(feed))
}

func (s *CoinGeckoSource) GetPrice(feed string) (Quote, error) {
	if s == nil {
		return Quote{}, fmt.Errorf("coingecko oracle not configured")
	}
	id := s.assetID(feed)
	if id == "" {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownFeed, feed)
	}
	req, err := http.NewRequest(http.MethodGet, s.endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	values := url.Values{}
	values.Set("ids", id)
	values.Set("vs_currencies", "usd")
	values.Set("include_last_updated_at", "true")
	req.URL.RawQuery = values.Encode()
	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("coingecko oracle: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]json.Number
	if err := decoder.Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("coingecko oracle: decode: %w", err)
	}
	entry, ok := payload[id]
	if !ok {
		return Quote{}, fmt.Errorf("coingecko oracle: quote missing for %s", feed)
	}
	raw, ok := entry["usd"]
	if !ok || strings.TrimSpace(raw.String()) == "" {
		return Quote{}, fmt.Errorf("coingecko oracle: empty price for %s", feed)
	}
	rat, ok := new(big.Rat).SetString(raw.String())
	if !ok || rat.Sign() <= 0 {
		return Quote{}, fmt.Errorf("%w: rate %q", ErrInvalidQuote, raw.String())
	}
	var ts time.Time
	if rawTs, exists := entry["last_updated_at"]; exists {
		if parsed, err := strconv.ParseInt(rawTs.String(), 10, 64); err == nil && parsed > 0 {
			ts = time.Unix(parsed, 0)
		}
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	price := ratToFeedPrice(rat)
	if price == nil || price.Sign() <= 0 {
		return Quote{}, fmt.Errorf("%w: rate %q", ErrInvalidQuote, raw.String())
	}
	return Quote{Price: price, UpdatedAt: ts, Source: "coingecko"}, nil
}

package oracle

import (
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeDoer struct {
	status int
	body   string
	err    error
	lastTo string
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.lastTo = req.URL.String()
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestCoinGeckoParsesQuote(t *testing.T) {
	updated := time.Now().Add(-30 * time.Second).Unix()
	doer := &fakeDoer{
		status: http.StatusOK,
		body:   fmt.Sprintf(`{"ethereum":{"usd":1998.53,"last_updated_at":%d}}`, updated),
	}
	source := NewCoinGeckoSource(doer, "", map[string]string{"ETH-USD": "ethereum"})

	quote, err := source.GetPrice("ETH-USD")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1998_5300_0000), quote.Price)
	require.Equal(t, time.Unix(updated, 0), quote.UpdatedAt)
	require.Equal(t, "coingecko", quote.Source)
	require.Contains(t, doer.lastTo, "ids=ethereum")
	require.Contains(t, doer.lastTo, "vs_currencies=usd")
}

func TestCoinGeckoUnmappedFeedFallsBack(t *testing.T) {
	doer := &fakeDoer{
		status: http.StatusOK,
		body:   `{"btc-usd":{"usd":64000}}`,
	}
	source := NewCoinGeckoSource(doer, "", nil)

	quote, err := source.GetPrice("BTC-USD")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(64000_0000_0000), quote.Price)
}

func TestCoinGeckoRejectsBadStatus(t *testing.T) {
	doer := &fakeDoer{status: http.StatusTooManyRequests, body: "rate limited"}
	source := NewCoinGeckoSource(doer, "", map[string]string{"ETH-USD": "ethereum"})

	_, err := source.GetPrice("ETH-USD")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestCoinGeckoRejectsMissingQuote(t *testing.T) {
	doer := &fakeDoer{status: http.StatusOK, body: `{}`}
	source := NewCoinGeckoSource(doer, "", map[string]string{"ETH-USD": "ethereum"})

	_, err := source.GetPrice("ETH-USD")
	require.Error(t, err)
}

func TestCoinGeckoRejectsNonPositivePrice(t *testing.T) {
	doer := &fakeDoer{status: http.StatusOK, body: `{"ethereum":{"usd":0}}`}
	source := NewCoinGeckoSource(doer, "", map[string]string{"ETH-USD": "ethereum"})

	_, err := source.GetPrice("ETH-USD")
	require.ErrorIs(t, err, ErrInvalidQuote)
}

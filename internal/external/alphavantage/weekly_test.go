package alphavantage

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weeklyBody = `{
    "Meta Data": {
        "1. Information": "Weekly Prices (open, high, low, close) and Volumes",
        "2. Symbol": "AAA"
    },
    "Weekly Time Series": {
        "2024-01-19": {
            "1. open": "10.5000",
            "2. high": "11.0000",
            "3. low": "10.1000",
            "4. close": "10.9000",
            "5. volume": "120000"
        },
        "2024-01-12": {
            "1. open": "10.0000",
            "2. high": "10.8000",
            "3. low": "9.9000",
            "4. close": "10.5000",
            "5. volume": "98000"
        },
        "2024-01-19": {
            "1. open": "10.6000",
            "2. high": "11.2000",
            "3. low": "10.2000",
            "4. close": "11.1000",
            "5. volume": "130000"
        }
    }
}`

func TestWeeklySeries_PreservesDocumentOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, FunctionWeekly, r.URL.Query().Get("function"))
		assert.Equal(t, "AAA", r.URL.Query().Get("symbol"))
		w.Write([]byte(weeklyBody))
	})

	raw, err := c.WeeklySeries(context.Background(), "AAA")
	require.NoError(t, err)
	require.Len(t, raw, 3, "duplicates are passed through; the normalizer resolves them")

	assert.Equal(t, "2024-01-19", raw[0].Date)
	assert.Equal(t, "2024-01-12", raw[1].Date)
	assert.Equal(t, "2024-01-19", raw[2].Date)
	assert.Equal(t, "11.1000", raw[2].Fields["4. close"])
	assert.Equal(t, "98000", raw[1].Fields["5. volume"])
}

func TestParseWeekly_EmptySeries(t *testing.T) {
	raw, err := parseWeekly("AAA", []byte(`{"Meta Data": {}, "Weekly Time Series": {}}`))
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestParseWeekly_MissingSeries(t *testing.T) {
	_, err := parseWeekly("AAA", []byte(`{"Meta Data": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), weeklySeriesKey)
}

func TestParseWeekly_NumericValuesKeptVerbatim(t *testing.T) {
	raw, err := parseWeekly("AAA", []byte(`{"Weekly Time Series": {"2024-01-05": {"1. open": 10.5, "5. volume": null}}}`))
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "10.5", raw[0].Fields["1. open"])
	assert.Equal(t, "", raw[0].Fields["5. volume"], "null decodes to empty")
}

package quotation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.234,50", "1234.5"},
		{"985,00", "985"},
		{"$ 1.015", "1015"},
		{"1234.50", "1234.5"},
		{" 350 ", "350"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRate(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "n/d", "0,00", "-5", "1,2,3"} {
		_, err := ParseRate(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseHistorical(t *testing.T) {
	points, err := ParseHistorical([][]string{
		{"Fecha", "Compra", "Venta"},
		{"03/01/2023", "340,00", "346,00"},
		{"02/01/2023", "338,00", "1.344,50"},
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, date(2023, time.January, 3), points[0].Date)
	assert.Equal(t, "346", points[0].ARSPerUSD.String())
	assert.Equal(t, "1344.5", points[1].ARSPerUSD.String())

	_, err = ParseHistorical(nil)
	assert.Error(t, err)
	_, err = ParseHistorical([][]string{{"Dia", "Valor"}})
	assert.ErrorContains(t, err, "lacks Fecha/Venta")
	_, err = ParseHistorical([][]string{{"Fecha", "Compra", "Venta"}, {"2023-01-03", "1", "2"}})
	assert.ErrorContains(t, err, "row 1")
}

func TestMergeLastWins(t *testing.T) {
	merged := Merge([]domain.QuotationPoint{
		{Date: date(2023, time.January, 3), ARSPerUSD: decimal.NewFromInt(346)},
		{Date: date(2023, time.January, 2), ARSPerUSD: decimal.NewFromInt(344)},
		{Date: date(2023, time.January, 3), ARSPerUSD: decimal.NewFromInt(350)},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, date(2023, time.January, 2), merged[0].Date)
	assert.Equal(t, "350", merged[1].ARSPerUSD.String())
}

func newTestServer(t *testing.T, live http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dolar/informal/historico-general/01-01-2023/04-01-2023", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "https://www.ambito.com/", r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[["Fecha","Compra","Venta"],["03/01/2023","340,00","346,00"],["02/01/2023","338,00","344,00"]]`))
	})
	mux.HandleFunc("/dolar/informal/variacion", live)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fixedClock() time.Time {
	return time.Date(2023, time.January, 4, 15, 0, 0, 0, time.UTC)
}

func TestClientFetchQuotations(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"compra":"345,00","venta":"351,00","fecha":"04/01/2023 - 11:05","variacion":"0,57%"}`))
	})

	c := NewClient(srv.URL+"/", date(2023, time.January, 1), WithClock(fixedClock), WithHTTPClient(srv.Client()))
	points, err := c.FetchQuotations(context.Background())
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, date(2023, time.January, 2), points[0].Date)
	assert.Equal(t, date(2023, time.January, 3), points[1].Date)
	assert.Equal(t, date(2023, time.January, 4), points[2].Date)
	assert.Equal(t, "351", points[2].ARSPerUSD.String())
}

func TestClientLiveFailureIsTolerated(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	c := NewClient(srv.URL, date(2023, time.January, 1), WithClock(fixedClock))
	points, err := c.FetchQuotations(context.Background())
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = c.Live(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClientWithoutLive(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("live endpoint must not be called")
	})

	c := NewClient(srv.URL, date(2023, time.January, 1), WithClock(fixedClock), WithLive(false))
	points, err := c.FetchQuotations(context.Background())
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestClientHistoricalFailure(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	c := NewClient(srv.URL, date(2022, time.January, 1), WithClock(fixedClock))
	_, err := c.FetchQuotations(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

// Package quotation fetches the informal ARS/USD series from Ámbito.
package quotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
)

const (
	// DefaultBaseURL is the Ámbito markets host.
	DefaultBaseURL = "https://mercados.ambito.com"

	historicalPath = "/dolar/informal/historico-general/%s/%s"
	livePath       = "/dolar/informal/variacion"
	pathDateLayout = "02-01-2006"
	rowDateLayout  = "02/01/2006"

	maxBodyBytes = 8 << 20
)

// ErrUnexpectedStatus is returned for non-200 responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client pulls the historical series and today's value.
type Client struct {
	httpClient *http.Client
	baseURL    string
	start      civil.Date
	live       bool
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLive toggles the live endpoint.
func WithLive(live bool) Option {
	return func(cl *Client) { cl.live = live }
}

// WithClock sets the clock used for the end of the historical range.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// NewClient creates a client for the series starting at start.
func NewClient(baseURL string, start civil.Date, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		start:      start,
		live:       true,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuotations returns the historical series merged with today's value,
// sorted by date. A later observation for the same date wins. A failing live
// endpoint is logged and ignored.
func (c *Client) FetchQuotations(ctx context.Context) ([]domain.QuotationPoint, error) {
	log := logger.FromContext(ctx)

	end := civil.DateOf(c.now())
	points, err := c.Historical(ctx, c.start, end)
	if err != nil {
		return nil, fmt.Errorf("FetchQuotations: %w", err)
	}
	log.Info().Int("points", len(points)).Str("from", c.start.String()).Str("to", end.String()).Msg("Fetched historical quotations")

	if c.live {
		p, err := c.Live(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Live quotation unavailable, continuing with historical series")
		} else {
			points = append(points, p)
		}
	}

	return Merge(points), nil
}

// Historical fetches the series between from and to, inclusive.
func (c *Client) Historical(ctx context.Context, from, to civil.Date) ([]domain.QuotationPoint, error) {
	url := c.baseURL + fmt.Sprintf(historicalPath, formatPathDate(from), formatPathDate(to))

	var matrix [][]string
	if err := c.getJSON(ctx, url, &matrix); err != nil {
		return nil, fmt.Errorf("Historical: %w", err)
	}
	points, err := ParseHistorical(matrix)
	if err != nil {
		return nil, fmt.Errorf("Historical: %w", err)
	}
	return points, nil
}

type liveResponse struct {
	Fecha string `json:"fecha"`
	Venta string `json:"venta"`
}

// Live fetches today's selling value.
func (c *Client) Live(ctx context.Context) (domain.QuotationPoint, error) {
	var resp liveResponse
	if err := c.getJSON(ctx, c.baseURL+livePath, &resp); err != nil {
		return domain.QuotationPoint{}, fmt.Errorf("Live: %w", err)
	}

	datePart, _, _ := strings.Cut(resp.Fecha, " - ")
	d, err := parseRowDate(datePart)
	if err != nil {
		return domain.QuotationPoint{}, fmt.Errorf("Live: %w", err)
	}
	rate, err := ParseRate(resp.Venta)
	if err != nil {
		return domain.QuotationPoint{}, fmt.Errorf("Live: %w", err)
	}
	return domain.QuotationPoint{Date: d, ARSPerUSD: rate}, nil
}

// ParseHistorical reads the historical matrix. The first row is the header
// and the rate is taken from the "Venta" column.
func ParseHistorical(matrix [][]string) ([]domain.QuotationPoint, error) {
	if len(matrix) == 0 {
		return nil, errors.New("empty response")
	}
	dateIdx, rateIdx := -1, -1
	for i, h := range matrix[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "fecha":
			dateIdx = i
		case "venta":
			rateIdx = i
		}
	}
	if dateIdx < 0 || rateIdx < 0 {
		return nil, fmt.Errorf("header %v lacks Fecha/Venta", matrix[0])
	}

	points := make([]domain.QuotationPoint, 0, len(matrix)-1)
	for i, row := range matrix[1:] {
		if dateIdx >= len(row) || rateIdx >= len(row) {
			return nil, fmt.Errorf("row %d: short row %v", i+1, row)
		}
		d, err := parseRowDate(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rate, err := ParseRate(row[rateIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		points = append(points, domain.QuotationPoint{Date: d, ARSPerUSD: rate})
	}
	return points, nil
}

// Merge sorts points by date, keeping the last point given for each date.
func Merge(points []domain.QuotationPoint) []domain.QuotationPoint {
	byDate := make(map[civil.Date]domain.QuotationPoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}
	out := make([]domain.QuotationPoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (c *Client) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://www.ambito.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %w %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}

func formatPathDate(d civil.Date) string {
	return d.In(time.UTC).Format(pathDateLayout)
}

func parseRowDate(s string) (civil.Date, error) {
	t, err := time.Parse(rowDateLayout, strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q", s)
	}
	return civil.DateOf(t), nil
}

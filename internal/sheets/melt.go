package sheets

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
)

var (
	// ErrNoHeader is returned for an empty sheet.
	ErrNoHeader = errors.New("sheet has no header row")
	// ErrMissingDateColumn is returned when the header lacks the date column.
	ErrMissingDateColumn = errors.New("sheet has no date column")
	// ErrNoChannelColumns is returned when no header matches a payment channel.
	ErrNoChannelColumns = errors.New("sheet has no payment channel columns")
)

// Channel is the payment method and fiscal condition labels given to every
// cell of a sheet column.
type Channel struct {
	Method    string
	Condition string
}

// Layout describes the wide sales sheet.
type Layout struct {
	DateColumn  string
	ShiftColumn string
	Channels    map[string]Channel

	// Rows dated outside [MinDate, MaxDate] are skipped. Zero means unbounded.
	MinDate civil.Date
	MaxDate civil.Date
}

// Sheet columns of the sales log.
const (
	ColumnCash         = "C"
	ColumnCard         = "T"
	ColumnBusinessMP   = "MP (NEGOCIO)"
	ColumnPurse        = "M"
	ColumnResellers    = "Revendedores solo números"
	ColumnMPUserE      = "MP Usuario E"
	ColumnMPUserF      = "MP Usuario F"
	ColumnMPUserA      = "MP Usuario A"
	DefaultDateColumn  = "Fecha"
	DefaultShiftColumn = "Turno"
)

// DefaultLayout is the sales sheet as kept by the shop. Cash, card and the
// business MercadoPago account are declared under the registered condition;
// the rest is informal.
func DefaultLayout(registered domain.FiscalCondition) Layout {
	fiscal := registered.String()
	informal := domain.FiscalConditionInformal.String()
	return Layout{
		DateColumn:  DefaultDateColumn,
		ShiftColumn: DefaultShiftColumn,
		Channels: map[string]Channel{
			ColumnCash:       {Method: ColumnCash, Condition: fiscal},
			ColumnCard:       {Method: ColumnCard, Condition: fiscal},
			ColumnBusinessMP: {Method: ColumnBusinessMP, Condition: fiscal},
			ColumnPurse:      {Method: ColumnPurse, Condition: informal},
			ColumnResellers:  {Method: ColumnResellers, Condition: informal},
			ColumnMPUserE:    {Method: ColumnMPUserE, Condition: informal},
			ColumnMPUserF:    {Method: ColumnMPUserF, Condition: informal},
			ColumnMPUserA:    {Method: ColumnMPUserA, Condition: informal},
		},
		MinDate: civil.Date{Year: 2020, Month: time.January, Day: 1},
	}
}

// SkipReason says why a sheet row produced no records.
type SkipReason string

const (
	SkipInvalidDate SkipReason = "invalid_date"
	SkipOutOfRange  SkipReason = "date_out_of_range"
	SkipDuplicate   SkipReason = "duplicate_row"
	SkipEmpty       SkipReason = "empty_row"
)

// Skip is a sheet row left out of the melt.
type Skip struct {
	Row    int
	Reason SkipReason
	Detail string
}

// MeltResult is the outcome of melting a sheet.
type MeltResult struct {
	Records []domain.RawRecord
	Skipped []Skip
}

// Accepted day-first date layouts, tried in order.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02/01/06",
	"2/1/06",
	"2006-01-02",
}

// ParseDayFirst parses a sheet date written day first.
func ParseDayFirst(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognized date %q", s)
}

// Melt turns the wide sheet into one RawRecord per non-blank channel cell.
// The first row is the header; record IDs are "<sheet row>:<column>" with the
// header on row 1. Rows that repeat an earlier row's date, shift and channel
// cells are skipped, keeping the first.
func Melt(rows [][]string, layout Layout) (*MeltResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("Melt: %w", ErrNoHeader)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	dateIdx, shiftIdx := -1, -1
	var channelIdx []int
	for i, h := range header {
		switch {
		case h == layout.DateColumn:
			dateIdx = i
		case layout.ShiftColumn != "" && h == layout.ShiftColumn:
			shiftIdx = i
		default:
			if _, ok := layout.Channels[h]; ok {
				channelIdx = append(channelIdx, i)
			}
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("Melt: %w: %q", ErrMissingDateColumn, layout.DateColumn)
	}
	if len(channelIdx) == 0 {
		return nil, fmt.Errorf("Melt: %w", ErrNoChannelColumns)
	}

	result := &MeltResult{}
	seen := make(map[string]int)

	for i, row := range rows[1:] {
		sheetRow := i + 2

		date, err := ParseDayFirst(cell(row, dateIdx))
		if err != nil {
			if isBlankRow(row) {
				continue
			}
			result.Skipped = append(result.Skipped, Skip{Row: sheetRow, Reason: SkipInvalidDate, Detail: err.Error()})
			continue
		}
		if (layout.MinDate.IsValid() && date.Before(layout.MinDate)) ||
			(layout.MaxDate.IsValid() && date.After(layout.MaxDate)) {
			result.Skipped = append(result.Skipped, Skip{Row: sheetRow, Reason: SkipOutOfRange, Detail: date.String()})
			continue
		}

		shift := cell(row, shiftIdx)
		key := rowKey(date, shift, row, channelIdx)
		if first, dup := seen[key]; dup {
			result.Skipped = append(result.Skipped, Skip{
				Row:    sheetRow,
				Reason: SkipDuplicate,
				Detail: fmt.Sprintf("same as row %d", first),
			})
			continue
		}
		seen[key] = sheetRow

		emitted := 0
		for _, idx := range channelIdx {
			text := cell(row, idx)
			if text == "" {
				continue
			}
			ch := layout.Channels[header[idx]]
			result.Records = append(result.Records, domain.RawRecord{
				ID:                   fmt.Sprintf("%d:%s", sheetRow, header[idx]),
				Date:                 date,
				AmountText:           text,
				PaymentMethodLabel:   ch.Method,
				FiscalConditionLabel: ch.Condition,
				Shift:                shift,
				SourceColumn:         header[idx],
			})
			emitted++
		}
		if emitted == 0 {
			result.Skipped = append(result.Skipped, Skip{Row: sheetRow, Reason: SkipEmpty})
		}
	}

	return result, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func rowKey(date civil.Date, shift string, row []string, channelIdx []int) string {
	var b strings.Builder
	b.WriteString(date.String())
	b.WriteByte('\x1f')
	b.WriteString(shift)
	for _, idx := range channelIdx {
		b.WriteByte('\x1f')
		b.WriteString(cell(row, idx))
	}
	return b.String()
}

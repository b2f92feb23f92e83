package csvio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/dvloznov/ingresos-analytics/internal/logger"
	"github.com/dvloznov/ingresos-analytics/internal/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRecordFile(t *testing.T) {
	path := writeFile(t, "ventas.csv", "\ufeffFecha,Turno,C,T,M\n"+
		"02/01/2023,Mañana,\"1.500,50\",,300\n"+
		"02/01/2023,Mañana,\"1.500,50\",,300\n"+
		"03/01/2023,Tarde,,u$s 20,\n")

	records, err := NewRecordFile(path, sheets.DefaultLayout(domain.FiscalConditionResponsableInscripto)).
		FetchRecords(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "2:C", records[0].ID)
	assert.Equal(t, "1.500,50", records[0].AmountText)
	assert.Equal(t, "2:M", records[1].ID)
	assert.Equal(t, "4:T", records[2].ID)
	assert.Equal(t, civil.Date{Year: 2023, Month: time.January, Day: 3}, records[2].Date)
}

func TestRecordFileMissing(t *testing.T) {
	_, err := NewRecordFile(filepath.Join(t.TempDir(), "nope.csv"), sheets.Layout{}).FetchRecords(context.Background())
	assert.ErrorContains(t, err, "failed to open record file")
}

func TestReadQuotations(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		want    []string
		wantErr string
	}{
		{
			name: "iso dates and plain rates",
			csv:  "fecha,cotizacion_blue\n2023-01-03,346\n2023-01-02,344.5\n",
			want: []string{"2023-01-02=344.5", "2023-01-03=346"},
		},
		{
			name: "day first with argentine separators",
			csv:  "Date,Venta\n02/01/2023,\"1.344,50\"\n02/01/2023,\"1.350,00\"\n",
			want: []string{"2023-01-02=1350"},
		},
		{
			name:    "missing rate column",
			csv:     "fecha,valor\n2023-01-02,1\n",
			wantErr: "needs a date and a rate column",
		},
		{
			name:    "bad rate",
			csv:     "fecha,cotizacion\n2023-01-02,n/d\n",
			wantErr: "line 2",
		},
		{
			name:    "empty",
			csv:     "",
			wantErr: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := ReadQuotations(strings.NewReader(tt.csv))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got := make([]string, len(points))
			for i, p := range points {
				got[i] = p.Date.String() + "=" + p.ARSPerUSD.String()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuotationFile(t *testing.T) {
	path := writeFile(t, "dolar.csv", "fecha,cotizacion\n2023-01-02,200\n")
	points, err := NewQuotationFile(path).FetchQuotations(context.Background())
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "200", points[0].ARSPerUSD.String())
}

func TestQuotationFileLogsToContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	path := writeFile(t, "dolar.csv", "fecha,cotizacion\n02/01/2023,\"1.200,50\"\n03/01/2023,210\n")
	points, err := NewQuotationFile(path).FetchQuotations(ctx)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Contains(t, buf.String(), "Read quotation file")
	assert.Contains(t, buf.String(), `"points":2`)
}

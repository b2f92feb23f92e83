package domain

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		label   string
		want    PaymentMethod
		wantErr bool
	}{
		{"C", PaymentMethodEfectivo, false},
		{"  efectivo ", PaymentMethodEfectivo, false},
		{"T", PaymentMethodTarjeta, false},
		{"MP (NEGOCIO)", PaymentMethodMercadoPago, false},
		{"MP   Usuario E", PaymentMethodMercadoPago, false},
		{"Revendedores solo números", PaymentMethodRevendedores, false},
		{"transferencia", PaymentMethodTransferencia, false},
		{"cheque", PaymentMethodUnknown, true},
		{"", PaymentMethodUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParsePaymentMethod(tt.label)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFiscalCondition(t *testing.T) {
	tests := []struct {
		label   string
		want    FiscalCondition
		wantErr bool
	}{
		{"monotributo", FiscalConditionMonotributo, false},
		{"Responsable Inscripto", FiscalConditionResponsableInscripto, false},
		{"RI", FiscalConditionResponsableInscripto, false},
		{"no_registrado", FiscalConditionInformal, false},
		{"exento", FiscalConditionUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseFiscalCondition(tt.label)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsRegistered(t *testing.T) {
	assert.True(t, IsRegistered(PaymentMethodTransferencia, FiscalConditionMonotributo))
	assert.True(t, IsRegistered(PaymentMethodEfectivo, FiscalConditionResponsableInscripto))
	assert.False(t, IsRegistered(PaymentMethodMonedero, FiscalConditionResponsableInscripto))
	assert.False(t, IsRegistered(PaymentMethodMercadoPago, FiscalConditionInformal))
}

func TestUnknownRuleError(t *testing.T) {
	err := &UnknownRuleError{Records: []RecordRef{
		{ID: "r000001", Date: civil.Date{Year: 2022, Month: 5, Day: 3}, PaymentMethodLabel: "cheque", FiscalConditionLabel: "informal", Reason: "unknown payment method"},
	}}

	assert.True(t, errors.Is(err, ErrUnknownTaxRule))
	assert.Contains(t, err.Error(), "r000001")
	assert.Contains(t, err.Error(), "2022-05-03")
	assert.Contains(t, err.Error(), `"cheque"`)
}

func TestQuotationGapError(t *testing.T) {
	err := &QuotationGapError{RecordID: "r000007", Date: civil.Date{Year: 2019, Month: 1, Day: 2}, WindowDays: 7}

	assert.True(t, errors.Is(err, ErrQuotationGap))
	assert.Contains(t, err.Error(), "2019-01-02")
}

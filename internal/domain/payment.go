package domain

import (
	"fmt"
	"strings"
)

// PaymentMethod is the channel a sale was collected through.
// The declaration order is the sort order used for dimension keys.
type PaymentMethod int

const (
	PaymentMethodUnknown PaymentMethod = iota
	PaymentMethodEfectivo
	PaymentMethodTarjeta
	PaymentMethodTransferencia
	PaymentMethodMercadoPago
	PaymentMethodMonedero
	PaymentMethodRevendedores
)

var paymentMethodNames = map[PaymentMethod]string{
	PaymentMethodEfectivo:      "efectivo",
	PaymentMethodTarjeta:       "tarjeta",
	PaymentMethodTransferencia: "transferencia",
	PaymentMethodMercadoPago:   "mercadopago",
	PaymentMethodMonedero:      "monedero",
	PaymentMethodRevendedores:  "revendedores",
}

// Labels as they show up in the sales sheet, lower-cased and trimmed.
var paymentMethodAliases = map[string]PaymentMethod{
	"efectivo":                  PaymentMethodEfectivo,
	"c":                         PaymentMethodEfectivo,
	"caja":                      PaymentMethodEfectivo,
	"cash":                      PaymentMethodEfectivo,
	"tarjeta":                   PaymentMethodTarjeta,
	"t":                         PaymentMethodTarjeta,
	"debito":                    PaymentMethodTarjeta,
	"credito":                   PaymentMethodTarjeta,
	"transferencia":             PaymentMethodTransferencia,
	"transf":                    PaymentMethodTransferencia,
	"mercadopago":               PaymentMethodMercadoPago,
	"mercado pago":              PaymentMethodMercadoPago,
	"mp":                        PaymentMethodMercadoPago,
	"mp (negocio)":              PaymentMethodMercadoPago,
	"mp usuario a":              PaymentMethodMercadoPago,
	"mp usuario e":              PaymentMethodMercadoPago,
	"mp usuario f":              PaymentMethodMercadoPago,
	"monedero":                  PaymentMethodMonedero,
	"m":                         PaymentMethodMonedero,
	"revendedores":              PaymentMethodRevendedores,
	"revendedores solo números": PaymentMethodRevendedores,
	"revendedores solo numeros": PaymentMethodRevendedores,
}

func (m PaymentMethod) String() string {
	if name, ok := paymentMethodNames[m]; ok {
		return name
	}
	return "unknown"
}

// DisplayName is the human-readable name used in the payment-method dimension.
func (m PaymentMethod) DisplayName() string {
	switch m {
	case PaymentMethodEfectivo:
		return "Efectivo (Caja)"
	case PaymentMethodTarjeta:
		return "Tarjeta"
	case PaymentMethodTransferencia:
		return "Transferencia Bancaria"
	case PaymentMethodMercadoPago:
		return "MercadoPago"
	case PaymentMethodMonedero:
		return "Monedero (Informal)"
	case PaymentMethodRevendedores:
		return "Cobro Revendedores"
	default:
		return "Desconocido"
	}
}

// ChannelType is "Físico" for cash-like channels and "Digital" otherwise.
func (m PaymentMethod) ChannelType() string {
	switch m {
	case PaymentMethodEfectivo, PaymentMethodMonedero, PaymentMethodRevendedores:
		return "Físico"
	default:
		return "Digital"
	}
}

// Informal channels never count as registered income, whatever the fiscal label says.
func (m PaymentMethod) Informal() bool {
	return m == PaymentMethodMonedero || m == PaymentMethodRevendedores
}

// ParsePaymentMethod maps a sheet label onto a PaymentMethod.
func ParsePaymentMethod(label string) (PaymentMethod, error) {
	key := normalizeLabel(label)
	if m, ok := paymentMethodAliases[key]; ok {
		return m, nil
	}
	return PaymentMethodUnknown, fmt.Errorf("unknown payment method %q", label)
}

// FiscalCondition is the tax classification of the income.
type FiscalCondition int

const (
	FiscalConditionUnknown FiscalCondition = iota
	FiscalConditionResponsableInscripto
	FiscalConditionMonotributo
	FiscalConditionInformal
)

var fiscalConditionNames = map[FiscalCondition]string{
	FiscalConditionResponsableInscripto: "responsable_inscripto",
	FiscalConditionMonotributo:          "monotributo",
	FiscalConditionInformal:             "informal",
}

var fiscalConditionAliases = map[string]FiscalCondition{
	"responsable_inscripto": FiscalConditionResponsableInscripto,
	"responsable inscripto": FiscalConditionResponsableInscripto,
	"ri":                    FiscalConditionResponsableInscripto,
	"fiscal":                FiscalConditionResponsableInscripto,
	"monotributo":           FiscalConditionMonotributo,
	"monotributista":        FiscalConditionMonotributo,
	"informal":              FiscalConditionInformal,
	"no_registrado":         FiscalConditionInformal,
	"no registrado":         FiscalConditionInformal,
	"unregistered":          FiscalConditionInformal,
}

func (f FiscalCondition) String() string {
	if name, ok := fiscalConditionNames[f]; ok {
		return name
	}
	return "unknown"
}

// Registered reports whether the condition implies a registered taxpayer.
func (f FiscalCondition) Registered() bool {
	return f == FiscalConditionResponsableInscripto || f == FiscalConditionMonotributo
}

// ParseFiscalCondition maps a sheet label onto a FiscalCondition.
func ParseFiscalCondition(label string) (FiscalCondition, error) {
	key := normalizeLabel(label)
	if f, ok := fiscalConditionAliases[key]; ok {
		return f, nil
	}
	return FiscalConditionUnknown, fmt.Errorf("unknown fiscal condition %q", label)
}

// IsRegistered derives the registered flag from the classified pair.
func IsRegistered(m PaymentMethod, f FiscalCondition) bool {
	return f.Registered() && !m.Informal()
}

func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

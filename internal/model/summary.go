package model

import (
	"github.com/dvloznov/ingresos-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// Summary holds run totals. Real ARS and USD totals cover adjusted facts only.
// Gross, TaxWithheld and Net are ARS; facts taxed on a native USD amount are
// counted in TaxedNative and totalled in NativeUSDGross and NativeUSDNet.
type Summary struct {
	Facts       int
	Adjusted    int
	Unadjusted  int
	Exact       int
	Unparseable int
	TaxedNative int

	NominalARS    decimal.Decimal
	RealARS       decimal.Decimal
	USDEquivalent decimal.Decimal
	Gross         decimal.Decimal
	TaxWithheld   decimal.Decimal
	Net           decimal.Decimal

	NativeUSDGross decimal.Decimal
	NativeUSDNet   decimal.Decimal
}

// Summary totals the schema's facts.
func (s *StarSchema) Summary() Summary {
	var sum Summary
	for _, f := range s.Facts {
		sum.Facts++
		if f.Exact {
			sum.Exact++
		}
		if f.Confidence == domain.ConfidenceUnparseable {
			sum.Unparseable++
		}
		if f.NominalARS.Valid {
			sum.NominalARS = sum.NominalARS.Add(f.NominalARS.Decimal)
		}
		if f.TaxedNative {
			sum.TaxedNative++
			sum.NativeUSDGross = sum.NativeUSDGross.Add(f.Gross)
			sum.NativeUSDNet = sum.NativeUSDNet.Add(f.Net)
		} else {
			sum.Gross = sum.Gross.Add(f.Gross)
			sum.TaxWithheld = sum.TaxWithheld.Add(f.TaxWithheld)
			sum.Net = sum.Net.Add(f.Net)
		}

		if !f.Adjusted {
			sum.Unadjusted++
			continue
		}
		sum.Adjusted++
		sum.RealARS = sum.RealARS.Add(f.RealARS.Decimal)
		sum.USDEquivalent = sum.USDEquivalent.Add(f.USDEquivalent.Decimal)
	}
	return sum
}

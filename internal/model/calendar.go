package model

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// Indexed by time.Weekday, Sunday first.
var dayNames = [...]string{
	"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado",
}

// NewDimCalendario derives every calendar attribute from d.
func NewDimCalendario(d civil.Date) DimCalendario {
	weekday := d.In(time.UTC).Weekday()
	return DimCalendario{
		FechaKey:     DateKey(d),
		Date:         d,
		Year:         d.Year,
		Month:        int(d.Month),
		Day:          d.Day,
		Quarter:      (int(d.Month)-1)/3 + 1,
		FiscalPeriod: fmt.Sprintf("%04d-%02d", d.Year, int(d.Month)),
		MonthName:    monthNames[d.Month-1],
		DayName:      dayNames[weekday],
		Weekend:      weekday == time.Saturday || weekday == time.Sunday,
	}
}

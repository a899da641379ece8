package stocktaking

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/Reservas-api/internal/domain"
	"github.com/jhoicas/Reservas-api/internal/domain/entity"
)

// Report es el modelo de lectura del informe de conteo físico.
type Report struct {
	StocktakingID         string                        `json:"stocktaking_id"`
	Status                string                        `json:"status"`
	TotalItems            int                           `json:"total_items"`
	MatchingItems         int                           `json:"matching_items"`
	SurplusItems          int                           `json:"surplus_items"`
	DeficitItems          int                           `json:"deficit_items"`
	TotalSystemValue      decimal.Decimal               `json:"total_system_value"`
	TotalCountedValue     decimal.Decimal               `json:"total_counted_value"`
	TotalDifferenceValue  decimal.Decimal               `json:"total_difference_value"`
	CancelledReservations []entity.CancelledReservation `json:"cancelled_reservations"`
	Rows                  []ReportRow                   `json:"rows"`
}

// ReportRow una línea por artículo contado.
type ReportRow struct {
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	LotNumber       string          `json:"lot"`
	ExpiryDate      *time.Time      `json:"expiry,omitempty"`
	SystemQuantity  decimal.Decimal `json:"system_qty"`
	CountedQuantity decimal.Decimal `json:"counted_qty"`
	Discrepancy     decimal.Decimal `json:"discrepancy"`
	ValueDiff       decimal.Decimal `json:"value_diff"`
}

// BuildReport arma el informe de un conteo.
func (uc *StocktakingUseCase) BuildReport(ctx context.Context, stocktakingID string) (*Report, error) {
	st, err := uc.stocktakingRepo.GetByID(stocktakingID)
	if err != nil {
		return nil, fmt.Errorf("cargar conteo: %w", err)
	}
	if st == nil {
		return nil, domain.ErrNotFound
	}

	r := &Report{
		StocktakingID:         st.ID,
		Status:                st.Status,
		TotalItems:            len(st.Items),
		TotalSystemValue:      decimal.Zero,
		TotalCountedValue:     decimal.Zero,
		TotalDifferenceValue:  decimal.Zero,
		CancelledReservations: st.CancelledReservations,
		Rows:                  make([]ReportRow, 0, len(st.Items)),
	}
	for i := range st.Items {
		line := &st.Items[i]
		disc := line.Discrepancy()
		valueDiff := disc.Mul(line.UnitPrice)
		switch {
		case disc.IsZero():
			r.MatchingItems++
		case disc.IsPositive():
			r.SurplusItems++
		default:
			r.DeficitItems++
		}
		r.TotalSystemValue = r.TotalSystemValue.Add(line.SystemQuantity.Mul(line.UnitPrice))
		r.TotalCountedValue = r.TotalCountedValue.Add(line.CountedQuantity.Mul(line.UnitPrice))
		r.TotalDifferenceValue = r.TotalDifferenceValue.Add(valueDiff)
		r.Rows = append(r.Rows, ReportRow{
			Name:            line.Name,
			Category:        line.Category,
			LotNumber:       line.LotNumber,
			ExpiryDate:      line.ExpiryDate,
			SystemQuantity:  line.SystemQuantity,
			CountedQuantity: line.CountedQuantity,
			Discrepancy:     disc,
			ValueDiff:       valueDiff,
		})
	}
	return r, nil
}

// WriteCSV exporta las líneas del informe como CSV.
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	header := []string{"name", "category", "lot", "expiry", "system_qty", "counted_qty", "discrepancy", "value_diff"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("escribir cabecera CSV: %w", err)
	}
	for _, row := range report.Rows {
		expiry := ""
		if row.ExpiryDate != nil {
			expiry = row.ExpiryDate.Format("2006-01-02")
		}
		record := []string{
			row.Name,
			row.Category,
			row.LotNumber,
			expiry,
			row.SystemQuantity.String(),
			row.CountedQuantity.String(),
			row.Discrepancy.String(),
			row.ValueDiff.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("escribir fila CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

package ledger

import "github.com/buzzn/myBuzzn-backend-sub000/internal/term"

// DateLayout formats ledger dates at the serialization boundary.
const DateLayout = "2006-01-02"

// PerCapitaView is the JSON shape served by the per-capita-consumption routes.
type PerCapitaView struct {
	Date                          string  `json:"date"`
	MeterID                       string  `json:"meter_id"`
	Consumption                   float64 `json:"consumption"`
	ConsumptionCumulated          float64 `json:"consumption_cumulated"`
	Inhabitants                   int     `json:"inhabitants"`
	PerCapitaConsumption          float64 `json:"per_capita_consumption"`
	PerCapitaConsumptionCumulated float64 `json:"per_capita_consumption_cumulated"`
	Days                          int     `json:"days"`
	MovingAverage                 float64 `json:"moving_average"`
	MovingAverageAnnualized       int     `json:"moving_average_annualized"`
}

// PKVView is the legacy naming of the same row.
type PKVView struct {
	Date                    string  `json:"date"`
	MeterID                 string  `json:"meter_id"`
	Consumption             float64 `json:"consumption"`
	ConsumptionCumulated    float64 `json:"consumption_cumulated"`
	Inhabitants             int     `json:"inhabitants"`
	PKV                     float64 `json:"pkv"`
	PKVCumulated            float64 `json:"pkv_cumulated"`
	Days                    int     `json:"days"`
	MovingAverage           float64 `json:"moving_average"`
	MovingAverageAnnualized int     `json:"moving_average_annualized"`
}

// PerCapita renders the row in current naming.
func (r Row) PerCapita() PerCapitaView {
	return PerCapitaView{
		Date:                          term.Day(r.Date).Format(DateLayout),
		MeterID:                       r.MeterID,
		Consumption:                   r.Consumption,
		ConsumptionCumulated:          r.ConsumptionCumulated,
		Inhabitants:                   r.Inhabitants,
		PerCapitaConsumption:          r.PerCapitaConsumption,
		PerCapitaConsumptionCumulated: r.PerCapitaConsumptionCumulated,
		Days:                          r.Days,
		MovingAverage:                 r.MovingAverage,
		MovingAverageAnnualized:       r.MovingAverageAnnualized,
	}
}

// PKV renders the row in legacy naming.
func (r Row) PKV() PKVView {
	return PKVView{
		Date:                    term.Day(r.Date).Format(DateLayout),
		MeterID:                 r.MeterID,
		Consumption:             r.Consumption,
		ConsumptionCumulated:    r.ConsumptionCumulated,
		Inhabitants:             r.Inhabitants,
		PKV:                     r.PerCapitaConsumption,
		PKVCumulated:            r.PerCapitaConsumptionCumulated,
		Days:                    r.Days,
		MovingAverage:           r.MovingAverage,
		MovingAverageAnnualized: r.MovingAverageAnnualized,
	}
}

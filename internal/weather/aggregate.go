package weather

import "time"

// AggregateDaily groups hourly forecast entries by local calendar day.
// Temperatures are reduced to min/max, precipitation probability and UV to their
// maxima, and the condition is chosen by majority (earliest code wins a tie).
func AggregateDaily(f Forecast) []DailySummary {
	if len(f.Entries) == 0 {
		return nil
	}

	loc := time.FixedZone("local", f.TimezoneOffset)

	var (
		days   []DailySummary
		counts map[int]int
		order  []int
	)

	flush := func() {
		if len(days) == 0 {
			return
		}
		best, bestCount := 0, 0
		for _, code := range order {
			if counts[code] > bestCount {
				best, bestCount = code, counts[code]
			}
		}
		days[len(days)-1].Condition = NewCondition(best, true)
	}

	for _, e := range f.Entries {
		lt := e.Timestamp.In(loc)
		date := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)

		if len(days) == 0 || !days[len(days)-1].Date.Equal(date) {
			flush()
			days = append(days, DailySummary{
				Date:    date,
				TempMin: e.Temperature,
				TempMax: e.Temperature,
			})
			counts = make(map[int]int)
			order = order[:0]
		}

		d := &days[len(days)-1]
		d.Samples++
		if e.Temperature < d.TempMin {
			d.TempMin = e.Temperature
		}
		if e.Temperature > d.TempMax {
			d.TempMax = e.Temperature
		}
		if e.PrecipProbability > d.PrecipProbability {
			d.PrecipProbability = e.PrecipProbability
		}
		if e.UVIndex > d.UVIndexMax {
			d.UVIndexMax = e.UVIndex
		}

		if _, seen := counts[e.Condition.Code]; !seen {
			order = append(order, e.Condition.Code)
		}
		counts[e.Condition.Code]++
	}
	flush()

	return days
}

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Schedule thresholds.
const (
	// hourWasteShare flags non-converting hours above this share of spend.
	hourWasteShare = 0.05
	// dayWasteShare flags non-converting days above this share of spend.
	dayWasteShare = 0.10
	// scheduleExtremes is how many best and worst hours are reported.
	scheduleExtremes = 3
)

// TimeAnalyzer analyzes hour-of-day and day-of-week performance and
// recommends ad schedule bid adjustments. Each half runs only when its
// export exists.
type TimeAnalyzer struct{}

// NewTimeAnalyzer creates a new TimeAnalyzer.
func NewTimeAnalyzer() *TimeAnalyzer {
	return &TimeAnalyzer{}
}

// Name returns the tool name.
func (a *TimeAnalyzer) Name() string {
	return "analyze_time_performance"
}

// Description returns the tool description.
func (a *TimeAnalyzer) Description() string {
	return "Analyzes hour-of-day and day-of-week performance patterns. Identifies peak conversion windows " +
		"and off-hours wasting budget. Produces specific bid adjustment recommendations for ad scheduling " +
		"with percentage adjustments per hour/day."
}

// Params returns the accepted parameters.
func (a *TimeAnalyzer) Params() []Param {
	return []Param{
		{
			Name:        "tod_path",
			Type:        "string",
			Description: "Path to " + classify.TypeTimeOfDay.FileName(),
			File:        classify.TypeTimeOfDay,
		},
		{
			Name:        "dow_path",
			Type:        "string",
			Description: "Path to " + classify.TypeDayOfWeek.FileName(),
			File:        classify.TypeDayOfWeek,
		},
	}
}

// ScheduleRow is one hour or day in a schedule table.
type ScheduleRow struct {
	Hour           *table.Cell `json:"hour,omitempty"`
	Day            *table.Cell `json:"day,omitempty"`
	Cost           float64     `json:"cost"`
	Conversions    float64     `json:"conversions"`
	ConvRate       string      `json:"conv_rate"`
	CPA            float64     `json:"cpa"`
	RecommendedAdj string      `json:"recommended_adj"`
}

// HourOfDay is the hourly half of a time analysis.
type HourOfDay struct {
	HourTable  []ScheduleRow `json:"hour_table"`
	TopHours   []table.Cell  `json:"top_performing_hours"`
	WorstHours []table.Cell  `json:"worst_performing_hours"`
}

// DayOfWeek is the daily half of a time analysis.
type DayOfWeek struct {
	DayTable []ScheduleRow `json:"day_table"`
}

// skippedPart is reported in place of a half whose export is missing.
type skippedPart struct {
	Error string `json:"error"`
}

// schedule is a cleaned hour or day export.
type schedule struct {
	f                 frame
	slot              table.Column
	cost, conv        series
	clicks            series
	totalCost, avgCVR float64
}

func loadSchedule(path string, slotNames ...string) (*schedule, error) {
	if path == "" {
		return nil, table.ErrNotFound
	}
	t, err := table.Load(path)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)
	s := &schedule{f: f, slot: f.col(slotNames...)}
	if !s.slot.Present() {
		return s, nil
	}
	s.cost = f.currency(f.col("Cost", "Spend"))
	s.conv = f.number(f.col("Conversions", "Conv."))
	s.clicks = f.number(f.col("Clicks"))
	s.totalCost = s.cost.sum()
	s.avgCVR = safeDivide(s.conv.sum(), s.clicks.sum())
	return s, nil
}

func (s *schedule) rate(i int) float64 {
	return safeDivide(s.conv.at(i), s.clicks.at(i))
}

func (s *schedule) row(i int) ScheduleRow {
	return ScheduleRow{
		Cost:           round(s.cost.at(i), 2),
		Conversions:    round(s.conv.at(i), 1),
		ConvRate:       pct(s.rate(i), 2),
		CPA:            round(safeDivide(s.cost.at(i), s.conv.at(i)), 2),
		RecommendedAdj: signedPct(scheduleAdjustment(s.rate(i), s.avgCVR)),
	}
}

// Analyze runs the schedule checks.
func (a *TimeAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	res := model.NewAnalysisResult()

	hourly, hourDone, err := analyzeHours(res, in.TodPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	daily, dayDone, err := analyzeDays(res, in.DowPath)
	if err != nil {
		return nil, err
	}

	res.SetExtra("hour_of_day", hourly)
	res.SetExtra("day_of_week", daily)
	res.Summary = fmt.Sprintf("Time performance analysis complete. Hourly analysis: %s. "+
		"Day-of-week analysis: %s. Found %d issues.",
		completion(hourDone), completion(dayDone), len(res.Findings))
	return res, nil
}

func completion(done bool) string {
	if done {
		return "complete"
	}
	return "skipped"
}

func analyzeHours(res *model.AnalysisResult, path string) (any, bool, error) {
	s, err := loadSchedule(path, "Hour of day", "Hour")
	if errors.Is(err, table.ErrNotFound) {
		return skippedPart{Error: classify.TypeTimeOfDay.FileName() + " not found, skipping hourly analysis"}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !s.slot.Present() {
		return map[string]any{}, true, nil
	}

	f := s.f
	out := HourOfDay{HourTable: make([]ScheduleRow, 0, f.len())}
	for i := 0; i < f.len(); i++ {
		hour := f.t.Value(i, s.slot)
		row := s.row(i)
		row.Hour = &hour
		out.HourTable = append(out.HourTable, row)

		cost := s.cost.at(i)
		share := safeDivide(cost, s.totalCost)
		if share > hourWasteShare && s.conv.at(i) == 0 {
			h := hour.String()
			res.AddFinding(model.Finding{
				Severity:   model.SeverityHigh,
				Area:       "Time of Day - Wasted Spend",
				Hour:       h,
				CostWasted: round(cost, 2),
				Detail: fmt.Sprintf("Hour %s:00 accounts for %s of spend (%s) with 0 conversions.",
					h, pct(share, 0), money(cost)),
				Recommendation: fmt.Sprintf("Set a -50%% to -100%% bid adjustment for hour %s in ad schedule settings.", h),
			})
		}
	}

	order := f.allRows()
	sort.SliceStable(order, func(a, b int) bool {
		return s.rate(order[a]) > s.rate(order[b])
	})
	top := order[:min(scheduleExtremes, len(order))]
	worst := order[max(0, len(order)-scheduleExtremes):]
	out.TopHours = make([]table.Cell, 0, len(top))
	for _, i := range top {
		out.TopHours = append(out.TopHours, f.t.Value(i, s.slot))
	}
	out.WorstHours = make([]table.Cell, 0, len(worst))
	for _, i := range worst {
		out.WorstHours = append(out.WorstHours, f.t.Value(i, s.slot))
	}
	return out, true, nil
}

func analyzeDays(res *model.AnalysisResult, path string) (any, bool, error) {
	s, err := loadSchedule(path, "Day of week", "Day")
	if errors.Is(err, table.ErrNotFound) {
		return skippedPart{Error: classify.TypeDayOfWeek.FileName() + " not found, skipping day-of-week analysis"}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !s.slot.Present() {
		return map[string]any{}, true, nil
	}

	f := s.f
	out := DayOfWeek{DayTable: make([]ScheduleRow, 0, f.len())}
	for i := 0; i < f.len(); i++ {
		day := f.t.Value(i, s.slot)
		row := s.row(i)
		row.Day = &day
		out.DayTable = append(out.DayTable, row)

		cost := s.cost.at(i)
		share := safeDivide(cost, s.totalCost)
		if share > dayWasteShare && s.conv.at(i) == 0 {
			d := day.String()
			res.AddFinding(model.Finding{
				Severity:   model.SeverityHigh,
				Area:       "Day of Week - Wasted Spend",
				Day:        d,
				CostWasted: round(cost, 2),
				Detail: fmt.Sprintf("%s accounts for %s of spend (%s) with 0 conversions.",
					d, pct(share, 0), money(cost)),
				Recommendation: fmt.Sprintf("Set a -50%% bid adjustment for %s or exclude from ad schedule.", d),
			})
		}
	}
	return out, true, nil
}

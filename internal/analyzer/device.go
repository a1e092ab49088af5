package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/adsaudit/internal/classify"
	"github.com/nao1215/adsaudit/internal/model"
	"github.com/nao1215/adsaudit/internal/table"
)

// Device and schedule bid thresholds.
const (
	// minBidAdjustment and maxBidAdjustment are the platform's bid adjustment limits in percent.
	minBidAdjustment = -90.0
	maxBidAdjustment = 900.0
	// deviceHighCPAMultiple flags devices far above account CPA.
	deviceHighCPAMultiple = 1.5
	// deviceLowCPAMultiple flags devices well below account CPA.
	deviceLowCPAMultiple = 0.7
	// deviceMinCost ignores devices with trivial spend.
	deviceMinCost = 50.0
	// mobileRateRatio flags mobile converting at less than this share of desktop.
	mobileRateRatio = 0.4
)

// DeviceAnalyzer compares device performance and recommends bid
// adjustments from each device's conversion rate relative to the account.
type DeviceAnalyzer struct{}

// NewDeviceAnalyzer creates a new DeviceAnalyzer.
func NewDeviceAnalyzer() *DeviceAnalyzer {
	return &DeviceAnalyzer{}
}

// Name returns the tool name.
func (a *DeviceAnalyzer) Name() string {
	return "analyze_devices"
}

// Description returns the tool description.
func (a *DeviceAnalyzer) Description() string {
	return "Compares Mobile, Desktop, and Tablet performance (CPA, conv rate, CTR, cost share). " +
		"Calculates recommended bid adjustment percentages for each device based on relative " +
		"conversion rate vs account average. Flags mobile UX issues and missed device opportunities."
}

// Params returns the accepted parameters.
func (a *DeviceAnalyzer) Params() []Param {
	return []Param{dataParam(classify.TypeDevices)}
}

// DeviceRow is one device in the performance table.
type DeviceRow struct {
	Device            string  `json:"device"`
	Cost              float64 `json:"cost"`
	CostShare         string  `json:"cost_share"`
	Conversions       float64 `json:"conversions"`
	CPA               float64 `json:"cpa"`
	ConvRate          string  `json:"conv_rate"`
	CTR               string  `json:"ctr"`
	RecommendedBidAdj string  `json:"recommended_bid_adj"`
}

// BidAdjustment pairs a device's current and recommended adjustments.
type BidAdjustment struct {
	Current     string `json:"current_adjustment"`
	Recommended string `json:"recommended_adjustment"`
}

// recommendedAdjustment sizes a bid adjustment in percent from the ratio
// of an entity's conversion rate to the benchmark, clamped to platform
// limits. It is 0 when either rate is unknown.
func recommendedAdjustment(rate, benchmark float64) float64 {
	if benchmark <= 0 || rate <= 0 {
		return 0
	}
	return clamp((rate/benchmark-1)*100, minBidAdjustment, maxBidAdjustment)
}

// scheduleAdjustment is like recommendedAdjustment, but a schedule slot
// with no conversions is pushed to the lower limit.
func scheduleAdjustment(rate, benchmark float64) float64 {
	if benchmark <= 0 {
		return 0
	}
	return clamp((rate/benchmark-1)*100, minBidAdjustment, maxBidAdjustment)
}

type deviceTotals struct {
	name                     string
	cost, conv, impr, clicks float64
	currentAdj               float64
}

func (d deviceTotals) convRate() float64 {
	return safeDivide(d.conv, d.clicks)
}

func isDesktop(device string) bool {
	return containsAny(strings.ToLower(device), "desktop", "computer")
}

// Analyze runs the device checks.
func (a *DeviceAnalyzer) Analyze(ctx context.Context, in Input) (*model.AnalysisResult, error) {
	t, err := table.Load(in.DataPath)
	if err != nil {
		return nil, err
	}
	f := newFrame(t)

	deviceCol := f.col("Device")
	if !deviceCol.Present() {
		return nil, &MissingColumnError{Column: "Device", File: classify.TypeDevices.FileName()}
	}
	cost := f.currency(f.col("Cost", "Spend"))
	conv := f.number(f.col("Conversions", "Conv."))
	impr := f.number(f.col("Impressions", "Impr."))
	clicks := f.number(f.col("Clicks"))
	bidAdj := f.percent(f.col("Bid adjustment"))

	devices := make([]deviceTotals, 0)
	var totalCost, totalConv, totalClicks float64
	for _, g := range f.groupBy(f.allRows(), deviceCol) {
		d := deviceTotals{
			name:       g.keys[0],
			cost:       cost.sumOf(g.rows),
			conv:       conv.sumOf(g.rows),
			impr:       impr.sumOf(g.rows),
			clicks:     clicks.sumOf(g.rows),
			currentAdj: bidAdj.meanOf(g.rows) * 100,
		}
		totalCost += d.cost
		totalConv += d.conv
		totalClicks += d.clicks
		devices = append(devices, d)
	}
	avgCPA := safeDivide(totalCost, totalConv)
	avgRate := safeDivide(totalConv, totalClicks)

	desktopRate, hasDesktop := 0.0, false
	for _, d := range devices {
		if isDesktop(d.name) {
			desktopRate, hasDesktop = d.convRate(), true
			break
		}
	}

	res := model.NewAnalysisResult()
	perf := make([]DeviceRow, 0, len(devices))
	recs := make(map[string]BidAdjustment, len(devices))

	for _, d := range devices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cpa := safeDivide(d.cost, d.conv)
		rate := d.convRate()
		ctr := safeDivide(d.clicks, d.impr)
		share := safeDivide(d.cost, totalCost) * 100
		adj := recommendedAdjustment(rate, avgRate)

		recs[d.name] = BidAdjustment{
			Current:     signedPct(d.currentAdj),
			Recommended: signedPct(adj),
		}
		perf = append(perf, DeviceRow{
			Device:            d.name,
			Cost:              round(d.cost, 2),
			CostShare:         fmt.Sprintf("%.1f%%", share),
			Conversions:       round(d.conv, 1),
			CPA:               round(cpa, 2),
			ConvRate:          pct(rate, 2),
			CTR:               pct(ctr, 2),
			RecommendedBidAdj: signedPct(adj),
		})

		if avgCPA > 0 {
			switch {
			case cpa > avgCPA*deviceHighCPAMultiple && d.cost > deviceMinCost && d.currentAdj >= 0:
				res.AddFinding(model.Finding{
					Severity: model.SeverityHigh,
					Area:     "Device Bid",
					Device:   d.name,
					Detail: fmt.Sprintf("%s CPA %s is %.1fx the account average. Current bid adj: %s.",
						d.name, money(cpa), cpa/avgCPA, signedPct(d.currentAdj)),
					Recommendation: fmt.Sprintf("Apply a %s bid adjustment for %s.", signedPct(adj), d.name),
				})
			case cpa < avgCPA*deviceLowCPAMultiple && d.cost > deviceMinCost && d.currentAdj <= 0:
				res.AddFinding(model.Finding{
					Severity: model.SeverityHigh,
					Area:     "Device Bid",
					Device:   d.name,
					Detail: fmt.Sprintf("%s CPA %s is significantly better than account avg %s. Missing opportunity.",
						d.name, money(cpa), money(avgCPA)),
					Recommendation: fmt.Sprintf("Increase %s bids by %s to capture more of this efficient traffic.",
						d.name, signedPct(adj)),
				})
			}
		}

		if strings.Contains(strings.ToLower(d.name), "mobile") && hasDesktop &&
			desktopRate > 0 && rate < desktopRate*mobileRateRatio {
			res.AddFinding(model.Finding{
				Severity: model.SeverityHigh,
				Area:     "Mobile Experience",
				Device:   "Mobile",
				Detail: fmt.Sprintf("Mobile conv. rate (%s) is less than 40%% of Desktop (%s). Significant mobile UX issue.",
					pct(rate, 2), pct(desktopRate, 2)),
				Recommendation: "Audit mobile landing page speed and UX. Consider mobile-specific landing pages or reducing mobile bids.",
			})
		}
	}

	res.SetExtra("device_performance_table", perf)
	res.SetExtra("bid_adjustment_recommendations", recs)
	res.Metrics = model.Metrics{
		"account_avg_cpa":       round(avgCPA, 2),
		"account_avg_conv_rate": round(avgRate, 4),
	}
	res.Summary = fmt.Sprintf("Analyzed device performance. Account avg CPA: %s. "+
		"Bid recommendations generated for %d devices. Found %d issues.",
		money(avgCPA), len(recs), len(res.Findings))
	return res, nil
}

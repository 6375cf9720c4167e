package refdata

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// latestYear returns the largest key of m that is <= year.
func latestYear[T any](m map[int]T, year int) (int, bool) {
	best, found := 0, false
	for y := range m {
		if y <= year && (!found || y > best) {
			best, found = y, true
		}
	}
	return best, found
}

// At returns the value for the most recent year <= year.
func (s Series) At(year int) (float64, bool) {
	y, ok := latestYear(s, year)
	if !ok {
		return 0, false
	}
	return s[y], true
}

func (d *Dataset) series(key AssetKey) Series {
	switch key.Class {
	case ClassStock:
		return d.Stocks[key.Name]
	case ClassProperty:
		return d.HousePricePerSqm[key.Name]
	}
	return nil
}

// Anchor returns the anchor price of key for year, falling back to the
// nearest earlier year. ok is false when no anchor exists at or before year.
func (d *Dataset) Anchor(key AssetKey, year int) (float64, bool) {
	return d.series(key).At(year)
}

// ExactAnchor returns the anchor recorded for exactly year.
func (d *Dataset) ExactAnchor(key AssetKey, year int) (float64, bool) {
	v, ok := d.series(key)[year]
	return v, ok
}

// Has reports whether key names a series in the dataset.
func (d *Dataset) Has(key AssetKey) bool {
	return len(d.series(key)) > 0
}

// Rent returns monthly rent per m² for region.
func (d *Dataset) Rent(region string, year int) (float64, bool) {
	return d.RentPerSqm[region].At(year)
}

// AverageIncomeFor returns the regional average gross salary.
func (d *Dataset) AverageIncomeFor(region string, year int) (float64, bool) {
	return d.AverageIncome[region].At(year)
}

// InflationIndex returns the price index level for year.
func (d *Dataset) InflationIndex(year int) (float64, bool) {
	return d.Inflation.At(year)
}

// BaseRate returns the base rate in force during (year, month).
func (d *Dataset) BaseRate(year, month int) (float64, bool) {
	target := year*12 + month
	best, found := 0, false
	rate := 0.0
	for _, p := range d.InterestRates {
		at := p.Year*12 + p.Month
		if at <= target && (!found || at >= best) {
			best, found, rate = at, true, p.Rate
		}
	}
	return rate, found
}

// IncomeTaxBands returns the bands of the latest tax table <= year.
func (d *Dataset) IncomeTaxBands(year int) ([]Band, bool) {
	y, ok := latestYear(d.IncomeTax, year)
	if !ok {
		return nil, false
	}
	return d.IncomeTax[y], true
}

// CapitalGainsFor returns the CGT rule of the latest table <= year.
func (d *Dataset) CapitalGainsFor(year int) (CapitalGainsRule, bool) {
	y, ok := latestYear(d.CapitalGains, year)
	if !ok {
		return CapitalGainsRule{}, false
	}
	return d.CapitalGains[y], true
}

// StampDutyFor returns the stamp duty rule of the latest table <= year.
func (d *Dataset) StampDutyFor(year int) (StampDutyRule, bool) {
	y, ok := latestYear(d.StampDuty, year)
	if !ok {
		return StampDutyRule{}, false
	}
	return d.StampDuty[y], true
}

// RentalFor returns the rental income rule of the latest table <= year,
// with empty bands filled from the income tax table.
func (d *Dataset) RentalFor(year int) (RentalRule, bool) {
	y, ok := latestYear(d.RentalIncome, year)
	if !ok {
		return RentalRule{}, false
	}
	rule := d.RentalIncome[y]
	if len(rule.Bands) == 0 {
		rule.Bands, _ = d.IncomeTaxBands(year)
	}
	return rule, true
}

// NationalPricePerSqm averages the regional house price anchors for year.
func (d *Dataset) NationalPricePerSqm(year int) (float64, bool) {
	sum, n := 0.0, 0
	for _, s := range d.HousePricePerSqm {
		if v, ok := s.At(year); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Tickers returns stock names in sorted order.
func (d *Dataset) Tickers() []string { return sortedKeys(d.Stocks) }

// Regions returns region names in sorted order.
func (d *Dataset) Regions() []string { return sortedKeys(d.HousePricePerSqm) }

// Keys returns every priced asset: stocks first, then regions.
func (d *Dataset) Keys() []AssetKey {
	keys := make([]AssetKey, 0, len(d.Stocks)+len(d.HousePricePerSqm))
	for _, t := range d.Tickers() {
		keys = append(keys, Stock(t))
	}
	for _, r := range d.Regions() {
		keys = append(keys, Region(r))
	}
	return keys
}

// Suggest returns the closest known name of the same class, or "" when
// nothing is within a couple of edits.
func (d *Dataset) Suggest(key AssetKey) string {
	var names []string
	switch key.Class {
	case ClassStock:
		names = d.Tickers()
	case ClassProperty:
		names = d.Regions()
	}
	best, bestDist := "", -1
	for _, n := range names {
		dist := levenshtein.ComputeDistance(key.Name, n)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = n, dist
		}
	}
	if bestDist < 0 || bestDist > suggestLimit(len(key.Name)) {
		return ""
	}
	return best
}

func suggestLimit(n int) int {
	switch {
	case n <= 3:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

func sortedKeys(m map[string]Series) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

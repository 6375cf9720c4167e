// Package refdata holds the immutable economic reference tables: stock and
// house price anchors, rents, incomes, inflation, base rates and the tax
// band tables. Every lookup resolves to the most recent entry at or before
// the requested year and never looks into the future.
package refdata

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AssetClass distinguishes the two priced asset families.
type AssetClass uint8

const (
	ClassStock AssetClass = iota
	ClassProperty
)

func (c AssetClass) String() string {
	switch c {
	case ClassStock:
		return "stock"
	case ClassProperty:
		return "property"
	default:
		return "unknown"
	}
}

// AssetKey names one priced series. For property the Name is a region and
// the price is per square metre.
type AssetKey struct {
	Class AssetClass `json:"class"`
	Name  string     `json:"name"`
}

// Stock is shorthand for a stock key.
func Stock(ticker string) AssetKey { return AssetKey{Class: ClassStock, Name: ticker} }

// Region is shorthand for a property-per-m² key.
func Region(name string) AssetKey { return AssetKey{Class: ClassProperty, Name: name} }

func (k AssetKey) String() string { return k.Class.String() + ":" + k.Name }

// ParseAssetKey parses "stock:LLOY" or "property:London".
func ParseAssetKey(s string) (AssetKey, error) {
	class, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return AssetKey{}, fmt.Errorf("asset key %q: want class:name", s)
	}
	switch class {
	case "stock":
		return Stock(name), nil
	case "property":
		return Region(name), nil
	}
	return AssetKey{}, fmt.Errorf("asset key %q: unknown class %q", s, class)
}

// Band is one marginal rate band. To is nil for the unbounded top band.
type Band struct {
	From decimal.Decimal  `yaml:"from" json:"from"`
	To   *decimal.Decimal `yaml:"to,omitempty" json:"to,omitempty"`
	Rate decimal.Decimal  `yaml:"rate" json:"rate"`
}

// Bounded reports whether the band has an upper threshold.
func (b Band) Bounded() bool { return b.To != nil }

// CapitalGainsRule is the annual exempt amount and the two CGT rates.
type CapitalGainsRule struct {
	Allowance  decimal.Decimal `yaml:"allowance" json:"allowance"`
	BasicRate  decimal.Decimal `yaml:"basic_rate" json:"basic_rate"`
	HigherRate decimal.Decimal `yaml:"higher_rate" json:"higher_rate"`
}

// StampDutyRule holds marginal price bands and the flat surcharge for
// additional properties, charged on the whole price.
type StampDutyRule struct {
	Surcharge decimal.Decimal `yaml:"surcharge" json:"surcharge"`
	Bands     []Band          `yaml:"bands" json:"bands"`
}

// RentalRule is the property allowance deducted before rental income is
// taxed. Bands, when empty, default to the income tax bands of the year.
type RentalRule struct {
	PropertyAllowance decimal.Decimal `yaml:"property_allowance" json:"property_allowance"`
	Bands             []Band          `yaml:"bands,omitempty" json:"bands,omitempty"`
}

// RatePoint is a base rate decision taking effect at (Year, Month).
type RatePoint struct {
	Year  int     `yaml:"year" json:"year"`
	Month int     `yaml:"month" json:"month"`
	Rate  float64 `yaml:"rate" json:"rate"`
}

// Series maps a calendar year to a value.
type Series map[int]float64

// Dataset is the full reference document.
type Dataset struct {
	Name             string                   `yaml:"name" json:"name"`
	Stocks           map[string]Series        `yaml:"stocks" json:"stocks"`
	HousePricePerSqm map[string]Series        `yaml:"house_price_per_sqm" json:"house_price_per_sqm"`
	RentPerSqm       map[string]Series        `yaml:"rent_per_sqm" json:"rent_per_sqm"`
	AverageIncome    map[string]Series        `yaml:"average_income" json:"average_income"`
	Inflation        Series                   `yaml:"inflation_index" json:"inflation_index"`
	InterestRates    []RatePoint              `yaml:"interest_rates" json:"interest_rates"`
	IncomeTax        map[int][]Band           `yaml:"income_tax" json:"income_tax"`
	CapitalGains     map[int]CapitalGainsRule `yaml:"capital_gains" json:"capital_gains"`
	StampDuty        map[int]StampDutyRule    `yaml:"stamp_duty" json:"stamp_duty"`
	RentalIncome     map[int]RentalRule       `yaml:"rental_income" json:"rental_income"`
}

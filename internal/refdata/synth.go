package refdata

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// SynthConfig parameterizes a synthetic dataset for offline play.
type SynthConfig struct {
	Seed      int64
	StartYear int
	EndYear   int
	Tickers   []string
	Regions   []string

	StockBase  float64 // starting price range upper bound
	HouseBase  float64 // starting £/m² range upper bound
	Drift      float64 // mean annual log growth
	Swing      float64 // amplitude of the noise on log price
	RentYield  float64 // gross annual rental yield
	IncomeBase float64
}

// DefaultSynthConfig returns a small fictional market.
func DefaultSynthConfig() SynthConfig {
	return SynthConfig{
		Seed:       42,
		StartYear:  2005,
		EndYear:    2024,
		Tickers:    []string{"ACME", "GLOBEX", "INITECH", "UMBRL"},
		Regions:    []string{"Northshire", "Southvale", "Capital"},
		StockBase:  20,
		HouseBase:  4000,
		Drift:      0.03,
		Swing:      0.6,
		RentYield:  0.045,
		IncomeBase: 30000,
	}
}

// Synthesize builds price, rent and income series from layered simplex
// noise. Tax tables, inflation and base rates are copied from template.
func Synthesize(cfg SynthConfig, template *Dataset) *Dataset {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))
	noise := opensimplex.New(seed)

	ds := &Dataset{
		Name:             "synthetic",
		Stocks:           make(map[string]Series, len(cfg.Tickers)),
		HousePricePerSqm: make(map[string]Series, len(cfg.Regions)),
		RentPerSqm:       make(map[string]Series, len(cfg.Regions)),
		AverageIncome:    make(map[string]Series, len(cfg.Regions)),
	}
	if template != nil {
		ds.Inflation = template.Inflation
		ds.InterestRates = template.InterestRates
		ds.IncomeTax = template.IncomeTax
		ds.CapitalGains = template.CapitalGains
		ds.StampDuty = template.StampDuty
		ds.RentalIncome = template.RentalIncome
	}

	for i, t := range cfg.Tickers {
		base := cfg.StockBase * (0.2 + 0.8*rng.Float64())
		ds.Stocks[t] = walk(noise, float64(i)*7.3, base, cfg)
	}
	for i, r := range cfg.Regions {
		base := cfg.HouseBase * (0.3 + 0.7*rng.Float64())
		// Property is smoother than equities.
		houseCfg := cfg
		houseCfg.Swing = cfg.Swing / 3
		prices := walk(noise, 100+float64(i)*5.1, base, houseCfg)
		ds.HousePricePerSqm[r] = prices

		rent := make(Series, len(prices))
		for y, p := range prices {
			rent[y] = round2(p * cfg.RentYield / 12)
		}
		ds.RentPerSqm[r] = rent

		income := make(Series, len(prices))
		scale := 0.7 + 0.6*rng.Float64()
		for y := cfg.StartYear; y <= cfg.EndYear; y++ {
			income[y] = math.Round(cfg.IncomeBase * scale * math.Pow(1.025, float64(y-cfg.StartYear)))
		}
		ds.AverageIncome[r] = income
	}
	return ds
}

// walk produces one anchor per year: a drifting log price perturbed by
// fractal noise sampled along the year axis at row y0.
func walk(noise opensimplex.Noise, y0, base float64, cfg SynthConfig) Series {
	s := make(Series, cfg.EndYear-cfg.StartYear+1)
	for y := cfg.StartYear; y <= cfg.EndYear; y++ {
		t := float64(y - cfg.StartYear)
		logP := cfg.Drift*t + cfg.Swing*octaveNoise(noise, t, y0, 4, 0.15, 0.5)
		s[y] = round2(base * math.Exp(logP))
	}
	return s
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

package player

import "github.com/umuterturk/investment-game/internal/refdata"

// Worth breaks net worth into its parts.
type Worth struct {
	Cash     float64 `json:"cash"`
	Stocks   float64 `json:"stocks"`
	Property float64 `json:"property"`
	Deposits float64 `json:"deposits"`
	Debt     float64 `json:"debt"`
	Total    float64 `json:"total"`
}

// NetWorth values everything at today's quotes. Assets with no quote count
// as zero.
func (s *State) NetWorth(m Market) Worth {
	w := Worth{Cash: s.Cash}
	for ticker, h := range s.Holdings {
		if price, ok := m.Quote(refdata.Stock(ticker)); ok {
			w.Stocks += price * h.Shares
		}
	}
	for _, p := range s.Properties {
		if perSqm, ok := m.Quote(refdata.Region(p.Region)); ok {
			w.Property += PropertyValue(perSqm, p.SizeSqm, p.Condition)
		}
	}
	if s.Tenancy != nil {
		w.Deposits = s.Tenancy.Deposit
	}
	for _, l := range s.Loans {
		w.Debt += l.RemainingPrincipal
	}
	w.Total = w.Cash + w.Stocks + w.Property + w.Deposits - w.Debt
	return w
}

package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/loan"
	"github.com/umuterturk/investment-game/internal/player"
	"github.com/umuterturk/investment-game/internal/refdata"
)

// act runs fn against the player under the simulation lock. A successful
// action is logged, recorded in the event ring and re-scores happiness.
func (s *Simulation) act(name string, key refdata.AssetKey, fn func(m marketView) (string, map[string]any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock.State == clock.Ended {
		return fmt.Errorf("%s: %w", name, player.ErrGameOver)
	}
	desc, meta, err := fn(s.market())
	if err != nil {
		if errors.Is(err, player.ErrUnknownAsset) && key.Name != "" {
			if hint := s.data.Suggest(key); hint != "" {
				err = fmt.Errorf("%w (did you mean %q?)", err, hint)
			}
		}
		slog.Debug("action rejected", "action", name, "error", err)
		return err
	}
	s.recomputeHappiness()
	s.emit(Event{Category: CategoryAction, Description: desc, Meta: meta})
	slog.Info("player action", "action", name, "detail", desc, "cash", money(s.player.Cash))
	return nil
}

// BuyStock buys shares of ticker at today's quote and returns the cost.
func (s *Simulation) BuyStock(ticker string, shares float64) (float64, error) {
	var cost float64
	err := s.act("buy stock", refdata.Stock(ticker), func(m marketView) (string, map[string]any, error) {
		var err error
		cost, err = s.player.BuyStock(m, ticker, shares)
		return fmt.Sprintf("Bought %g %s for %s", shares, ticker, money(cost)),
			map[string]any{"ticker": ticker, "shares": shares, "cost": cost}, err
	})
	return cost, err
}

// SellStock sells shares of ticker and returns proceeds and realized gain.
func (s *Simulation) SellStock(ticker string, shares float64) (proceeds, gain float64, err error) {
	err = s.act("sell stock", refdata.Stock(ticker), func(m marketView) (string, map[string]any, error) {
		var err error
		proceeds, gain, err = s.player.SellStock(m, ticker, shares)
		return fmt.Sprintf("Sold %g %s for %s (gain %s)", shares, ticker, money(proceeds), money(gain)),
			map[string]any{"ticker": ticker, "shares": shares, "proceeds": proceeds, "gain": gain}, err
	})
	return proceeds, gain, err
}

// QuoteProperty prices a purchase without buying.
func (s *Simulation) QuoteProperty(region string, sizeSqm, deposit float64) (player.PurchaseQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.player.QuoteProperty(s.market(), region, sizeSqm, deposit)
	if errors.Is(err, player.ErrUnknownAsset) {
		if hint := s.data.Suggest(refdata.Region(region)); hint != "" {
			err = fmt.Errorf("%w (did you mean %q?)", err, hint)
		}
	}
	return q, err
}

// BuyProperty buys a property with a mortgage for whatever the deposit
// does not cover.
func (s *Simulation) BuyProperty(region string, sizeSqm, deposit float64, primary bool) (player.Property, error) {
	var prop player.Property
	err := s.act("buy property", refdata.Region(region), func(m marketView) (string, map[string]any, error) {
		var (
			q   player.PurchaseQuote
			err error
		)
		prop, q, err = s.player.BuyProperty(m, region, sizeSqm, deposit, primary)
		return fmt.Sprintf("Bought %gm² in %s for %s (stamp duty %s)", sizeSqm, region, money(q.Price), money(q.StampDuty)),
			map[string]any{"property_id": prop.ID, "price": q.Price, "stamp_duty": q.StampDuty, "mortgage": q.Mortgage}, err
	})
	return prop, err
}

// SellProperty sells a property, clearing its mortgage.
func (s *Simulation) SellProperty(id string) (player.SaleQuote, error) {
	var q player.SaleQuote
	err := s.act("sell property", refdata.AssetKey{}, func(m marketView) (string, map[string]any, error) {
		var err error
		q, err = s.player.SellProperty(m, id)
		return fmt.Sprintf("Sold property for %s (net %s)", money(q.Value), money(q.Net)),
			map[string]any{"property_id": id, "value": q.Value, "net": q.Net, "gain": q.Gain, "exempt": q.Exempt}, err
	})
	return q, err
}

// LetProperty lets or un-lets a non-primary property.
func (s *Simulation) LetProperty(id string, let bool) (float64, error) {
	var rent float64
	err := s.act("let property", refdata.AssetKey{}, func(m marketView) (string, map[string]any, error) {
		var err error
		rent, err = s.player.LetProperty(m, id, let)
		desc := "Took property off the rental market"
		if let {
			desc = fmt.Sprintf("Let property for %s a month", money(rent))
		}
		return desc, map[string]any{"property_id": id, "rent": rent}, err
	})
	return rent, err
}

// Rent takes a tenancy.
func (s *Simulation) Rent(region string, sizeSqm float64) (player.Tenancy, error) {
	var t player.Tenancy
	err := s.act("rent", refdata.Region(region), func(m marketView) (string, map[string]any, error) {
		var err error
		t, err = s.player.Rent(m, region, sizeSqm)
		return fmt.Sprintf("Renting %gm² in %s for %s a month", sizeSqm, region, money(t.MonthlyRent)),
			map[string]any{"region": region, "rent": t.MonthlyRent, "deposit": t.Deposit}, err
	})
	return t, err
}

// EndTenancy ends the tenancy and refunds the deposit.
func (s *Simulation) EndTenancy() (float64, error) {
	var refund float64
	err := s.act("end tenancy", refdata.AssetKey{}, func(marketView) (string, map[string]any, error) {
		var err error
		refund, err = s.player.EndTenancy()
		return fmt.Sprintf("Ended tenancy, deposit %s returned", money(refund)), map[string]any{"refund": refund}, err
	})
	return refund, err
}

// TakeLoan borrows a personal loan.
func (s *Simulation) TakeLoan(amount float64, termMonths int) (loan.Loan, error) {
	var l loan.Loan
	err := s.act("take loan", refdata.AssetKey{}, func(m marketView) (string, map[string]any, error) {
		var err error
		l, err = s.player.TakeLoan(m, amount, termMonths)
		return fmt.Sprintf("Borrowed %s over %d months at %.2f%%", money(amount), termMonths, l.AnnualRate*100),
			map[string]any{"loan_id": l.ID, "amount": amount, "rate": l.AnnualRate}, err
	})
	return l, err
}

// RepayLoan clears a loan early and returns the amount paid.
func (s *Simulation) RepayLoan(id string) (float64, error) {
	var paid float64
	err := s.act("repay loan", refdata.AssetKey{}, func(marketView) (string, map[string]any, error) {
		var err error
		paid, err = s.player.RepayLoan(id)
		return fmt.Sprintf("Repaid loan for %s", money(paid)), map[string]any{"loan_id": id, "paid": paid}, err
	})
	return paid, err
}

// SetInsurance turns a policy on or off.
func (s *Simulation) SetInsurance(kind string, on bool) error {
	return s.act("set insurance", refdata.AssetKey{}, func(marketView) (string, map[string]any, error) {
		state := "cancelled"
		if on {
			state = "taken out"
		}
		return fmt.Sprintf("%s insurance %s", kind, state), map[string]any{"kind": kind, "on": on},
			s.player.SetInsurance(kind, on)
	})
}

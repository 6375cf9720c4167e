package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/investment-game/internal/loan"
	"github.com/umuterturk/investment-game/internal/refdata"
)

type fakeMarket struct {
	quotes map[refdata.AssetKey]float64
	rents  map[string]float64
	base   float64
	uk     *refdata.Dataset
}

func newMarket(t *testing.T) *fakeMarket {
	t.Helper()
	ds, err := refdata.Default()
	require.NoError(t, err)
	return &fakeMarket{
		quotes: map[refdata.AssetKey]float64{
			refdata.Stock("LLOY"):    50,
			refdata.Region("London"): 5000,
		},
		rents: map[string]float64{"London": 20},
		base:  0.04,
		uk:    ds,
	}
}

func (m *fakeMarket) Quote(k refdata.AssetKey) (float64, bool) {
	v, ok := m.quotes[k]
	return v, ok
}

func (m *fakeMarket) RentPerSqm(region string) (float64, bool) {
	v, ok := m.rents[region]
	return v, ok
}

func (m *fakeMarket) BaseRate() float64 { return m.base }
func (m *fakeMarket) Year() int         { return 2024 }
func (m *fakeMarket) Month() int        { return 5 }

func (m *fakeMarket) StampDuty() refdata.StampDutyRule {
	r, _ := m.uk.StampDutyFor(2024)
	return r
}

func (m *fakeMarket) CapitalGains() refdata.CapitalGainsRule {
	r, _ := m.uk.CapitalGainsFor(2024)
	return r
}

func TestBuyStockInsufficientFunds(t *testing.T) {
	m := newMarket(t)
	s := New("p", 100, 30000, "London", 900)

	_, err := s.BuyStock(m, "LLOY", 3)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 100.0, s.Cash)
	assert.Empty(t, s.Holdings)
}

func TestBuySellRealizesGain(t *testing.T) {
	m := newMarket(t)
	s := New("p", 1000, 30000, "London", 900)

	cost, err := s.BuyStock(m, "LLOY", 10)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cost)
	assert.Equal(t, 500.0, s.Cash)

	m.quotes[refdata.Stock("LLOY")] = 60
	proceeds, gain, err := s.SellStock(m, "LLOY", 5)
	require.NoError(t, err)
	assert.Equal(t, 300.0, proceeds)
	assert.Equal(t, 50.0, gain)
	assert.Equal(t, 800.0, s.Cash)
	assert.Equal(t, Holding{Shares: 5, CostBasis: 250}, s.Holdings["LLOY"])
	assert.Equal(t, "50", s.TaxYear.RealizedGains.String())

	_, _, err = s.SellStock(m, "LLOY", 6)
	require.ErrorIs(t, err, ErrNotOwned)

	_, _, err = s.SellStock(m, "LLOY", 5)
	require.NoError(t, err)
	assert.NotContains(t, s.Holdings, "LLOY")
}

func TestUnknownAndInvalid(t *testing.T) {
	m := newMarket(t)
	s := New("p", 1000, 30000, "London", 900)

	_, err := s.BuyStock(m, "NOPE", 1)
	assert.ErrorIs(t, err, ErrUnknownAsset)
	_, err = s.BuyStock(m, "LLOY", -1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.ErrorIs(t, s.SetInsurance("pet", true), ErrInvalidAmount)
}

func buyHome(t *testing.T, m *fakeMarket, s *State) Property {
	t.Helper()
	p, q, err := s.BuyProperty(m, "London", 60, 30000, true)
	require.NoError(t, err)
	assert.Equal(t, 291000.0, q.Price)
	assert.Equal(t, 2050.0, q.StampDuty)
	assert.False(t, q.Additional)
	return p
}

func TestBuyProperty(t *testing.T) {
	m := newMarket(t)
	s := New("p", 40000, 60000, "Midlands", 900)
	_, err := s.Rent(m, "London", 50)
	require.NoError(t, err)

	p := buyHome(t, m, s)
	// 40000 - 2000 rent up front - 32050 + 1000 deposit refunded
	assert.InDelta(t, 6950.0, s.Cash, 1e-6)
	assert.Nil(t, s.Tenancy)
	assert.Equal(t, "London", s.HomeRegion)

	require.Len(t, s.Loans, 1)
	l := s.Loans[0]
	assert.Equal(t, loan.KindMortgage, l.Kind)
	assert.Equal(t, p.ID, l.PropertyID)
	assert.Equal(t, 261000.0, l.Principal)
	assert.InDelta(t, 0.055, l.AnnualRate, 1e-12)

	q, err := s.QuoteProperty(m, "London", 60, 30000)
	require.NoError(t, err)
	assert.True(t, q.Additional)
	assert.InDelta(t, 2050.0+8730.0, q.StampDuty, 1e-6)
}

func TestBuyToLetOnlyPaysNoSurcharge(t *testing.T) {
	m := newMarket(t)
	s := New("p", 80000, 60000, "London", 900)

	_, q, err := s.BuyProperty(m, "London", 60, 30000, false)
	require.NoError(t, err)
	assert.False(t, q.Additional)

	q, err = s.QuoteProperty(m, "London", 60, 30000)
	require.NoError(t, err)
	assert.False(t, q.Additional, "no main residence owned")
	assert.Equal(t, 2050.0, q.StampDuty)

	buyHome(t, m, s)
	q, err = s.QuoteProperty(m, "London", 60, 30000)
	require.NoError(t, err)
	assert.True(t, q.Additional)
}

func TestBuyPropertyRefusals(t *testing.T) {
	m := newMarket(t)

	s := New("p", 40000, 40000, "London", 900)
	_, _, err := s.BuyProperty(m, "London", 60, 30000, true)
	assert.ErrorIs(t, err, ErrLoanRefused)

	s = New("p", 40000, 60000, "London", 900)
	_, _, err = s.BuyProperty(m, "London", 60, 1000, true)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	s = New("p", 31000, 60000, "London", 900)
	_, _, err = s.BuyProperty(m, "London", 60, 30000, true)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 31000.0, s.Cash)
	assert.Empty(t, s.Properties)
	assert.Empty(t, s.Loans)
}

func TestSellPropertyNegativeEquity(t *testing.T) {
	m := newMarket(t)
	s := New("p", 40000, 60000, "London", 900)
	p := buyHome(t, m, s)
	cash := s.Cash

	m.quotes[refdata.Region("London")] = 3000
	_, err := s.SellProperty(m, p.ID)
	require.ErrorIs(t, err, ErrNegativeEquity)
	assert.Equal(t, cash, s.Cash)
	assert.Len(t, s.Properties, 1)
	assert.Len(t, s.Loans, 1)
}

func TestSellPropertyClearsMortgage(t *testing.T) {
	m := newMarket(t)
	s := New("p", 40000, 60000, "London", 900)
	p := buyHome(t, m, s)
	cash := s.Cash

	m.quotes[refdata.Region("London")] = 6000
	q, err := s.SellProperty(m, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 349200.0, q.Value)
	assert.Equal(t, 261000.0, q.Debt)
	assert.InDelta(t, 13050.0, q.Charge, 1e-6)
	assert.True(t, q.Exempt)
	assert.InDelta(t, cash+75150, s.Cash, 1e-6)
	assert.Empty(t, s.Loans)
	assert.Empty(t, s.Properties)
	assert.True(t, s.TaxYear.RealizedGains.IsZero())
}

func TestSellLetPropertyRealizesGain(t *testing.T) {
	m := newMarket(t)
	s := New("p", 400000, 60000, "London", 900)
	p, _, err := s.BuyProperty(m, "London", 60, 291000, false)
	require.NoError(t, err)
	assert.Empty(t, s.Loans)

	rent, err := s.LetProperty(m, p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, rent)

	m.quotes[refdata.Region("London")] = 6000
	q, err := s.SellProperty(m, p.ID)
	require.NoError(t, err)
	assert.False(t, q.Exempt)
	assert.Equal(t, 58200.0, q.Gain)
	assert.Equal(t, "58200", s.TaxYear.RealizedGains.String())
}

func TestLetPrimaryRefused(t *testing.T) {
	m := newMarket(t)
	s := New("p", 40000, 60000, "London", 900)
	p := buyHome(t, m, s)

	_, err := s.LetProperty(m, p.ID, true)
	assert.ErrorIs(t, err, ErrPrimaryResidence)
	_, err = s.LetProperty(m, "missing", true)
	assert.ErrorIs(t, err, ErrNotOwned)
}

func TestTenancy(t *testing.T) {
	m := newMarket(t)
	s := New("p", 3000, 30000, "London", 900)

	ten, err := s.Rent(m, "London", 50)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, ten.MonthlyRent)
	assert.Equal(t, 1000.0, ten.Deposit)
	assert.Equal(t, 1000.0, s.Cash)

	_, err = s.Rent(m, "London", 50)
	assert.ErrorIs(t, err, ErrTenancyActive)

	refund, err := s.EndTenancy()
	require.NoError(t, err)
	assert.Equal(t, 1000.0, refund)
	assert.Equal(t, 2000.0, s.Cash)

	s.Cash = 1500
	_, err = s.Rent(m, "London", 50)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Nil(t, s.Tenancy)
	assert.Equal(t, 1500.0, s.Cash)
}

func TestPersonalLoan(t *testing.T) {
	m := newMarket(t)
	s := New("p", 1000, 30000, "London", 900)

	l, err := s.TakeLoan(m, 10000, 36)
	require.NoError(t, err)
	assert.InDelta(t, 0.095, l.AnnualRate, 1e-12)
	assert.Equal(t, 11000.0, s.Cash)

	_, err = s.TakeLoan(m, 25000, 36)
	assert.ErrorIs(t, err, ErrLoanRefused)

	paid, err := s.RepayLoan(l.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10500.0, paid, 1e-6)
	assert.InDelta(t, 500.0, s.Cash, 1e-6)
	assert.Empty(t, s.Loans)

	s.Job.UnemployedMonths = 2
	_, err = s.TakeLoan(m, 100, 12)
	assert.ErrorIs(t, err, ErrLoanRefused)
}

func TestNetWorth(t *testing.T) {
	m := newMarket(t)
	s := New("p", 40000, 60000, "London", 900)
	_, err := s.BuyStock(m, "LLOY", 10)
	require.NoError(t, err)
	buyHome(t, m, s)

	w := s.NetWorth(m)
	assert.InDelta(t, 500.0, w.Stocks, 1e-9)
	assert.InDelta(t, 291000.0, w.Property, 1e-6)
	assert.InDelta(t, 261000.0, w.Debt, 1e-6)
	assert.InDelta(t, w.Cash+w.Stocks+w.Property-w.Debt, w.Total, 1e-6)
}

func TestClone(t *testing.T) {
	m := newMarket(t)
	s := New("p", 40000, 60000, "London", 900)
	_, err := s.BuyStock(m, "LLOY", 10)
	require.NoError(t, err)
	buyHome(t, m, s)

	c := s.Clone()
	c.Holdings["LLOY"] = Holding{}
	c.Properties[0].Condition = 1
	c.Loans[0].RemainingPrincipal = 0

	assert.Equal(t, 10.0, s.Holdings["LLOY"].Shares)
	assert.Equal(t, 80.0, s.Properties[0].Condition)
	assert.Equal(t, 261000.0, s.Loans[0].RemainingPrincipal)
}

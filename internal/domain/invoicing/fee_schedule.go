package invoicing

import (
	"fmt"

	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ErrFeeNotConfigured is returned for categories without a configured fee
var ErrFeeNotConfigured = shared.NewDomainError("FEE_NOT_CONFIGURED", "No membership fee configured for this category")

// FeeSchedule holds the annual membership fees per Beitragskategorie
type FeeSchedule struct {
	Stammsektion  map[membership.Beitragskategorie]decimal.Decimal
	Zusatzsektion map[membership.Beitragskategorie]decimal.Decimal
}

// NewFeeSchedule builds a schedule from string amounts keyed by category code
func NewFeeSchedule(stammsektion, zusatzsektion map[string]string) (*FeeSchedule, error) {
	s := &FeeSchedule{
		Stammsektion:  make(map[membership.Beitragskategorie]decimal.Decimal),
		Zusatzsektion: make(map[membership.Beitragskategorie]decimal.Decimal),
	}
	if err := parseFees(stammsektion, s.Stammsektion); err != nil {
		return nil, err
	}
	if err := parseFees(zusatzsektion, s.Zusatzsektion); err != nil {
		return nil, err
	}
	return s, nil
}

func parseFees(in map[string]string, out map[membership.Beitragskategorie]decimal.Decimal) error {
	for code, amount := range in {
		k, ok := membership.ParseBeitragskategorie(code)
		if !ok {
			return fmt.Errorf("unknown beitragskategorie %q in fee schedule", code)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid fee %q for %s: %w", amount, code, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("negative fee for %s", code)
		}
		out[k] = d
	}
	return nil
}

// Fee returns the annual fee for a membership role
func (s *FeeSchedule) Fee(kind InvoiceKind, kategorie membership.Beitragskategorie) (decimal.Decimal, error) {
	fees := s.Stammsektion
	if kind == InvoiceKindZusatzsektion {
		fees = s.Zusatzsektion
	}
	fee, ok := fees[kategorie]
	if !ok {
		return decimal.Zero, ErrFeeNotConfigured
	}
	return fee, nil
}

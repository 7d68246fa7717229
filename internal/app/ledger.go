package app

import (
	"context"
	"fmt"
	"strings"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/cachekey"
)

// LedgerService records payments and builds party statements.
type LedgerService struct {
	*base
}

// RecordPayment stores a payment received from or made to a party.
func (s *LedgerService) RecordPayment(ctx context.Context, p *erp.Payment) (*erp.Payment, error) {
	p.PartyName = strings.TrimSpace(p.PartyName)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID, p.CreatedAt = s.stamp(p.ID)
	if p.PaidAt == "" {
		p.PaidAt = s.today()
	}
	err := s.mutate(ctx, cachekey.RecordPayment, func(ctx context.Context) error {
		return s.store.RecordPayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Statement returns the account of one party for period p.
func (s *LedgerService) Statement(ctx context.Context, partyType, name string, p erp.Period) (*erp.Statement, error) {
	name = strings.TrimSpace(name)
	if !erp.ValidPartyType(partyType) {
		return nil, fmt.Errorf("%w: party_type must be customer or vendor", erp.ErrBadRequest)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: party name is required", erp.ErrBadRequest)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return read(ctx, s.base, cachekey.Statement(partyType, name, p), func(ctx context.Context) (*erp.Statement, error) {
		lines, err := s.store.StatementLines(ctx, partyType, name)
		if err != nil {
			return nil, err
		}
		return erp.BuildStatement(partyType, name, p, lines), nil
	})
}

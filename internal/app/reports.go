package app

import (
	"context"

	erp "github.com/eugener/silverbook/internal"
	"github.com/eugener/silverbook/internal/cachekey"
)

// ReportService serves the read-only reports.
type ReportService struct {
	*base
}

// ProfitAndLoss returns the profit and loss for p.
func (s *ReportService) ProfitAndLoss(ctx context.Context, p erp.Period) (*erp.PLReport, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return read(ctx, s.base, cachekey.PLReport(p), func(ctx context.Context) (*erp.PLReport, error) {
		return s.store.ProfitAndLoss(ctx, p)
	})
}

// Dashboard returns today's headline figures.
func (s *ReportService) Dashboard(ctx context.Context) (*erp.DashboardStats, error) {
	return read(ctx, s.base, cachekey.DashboardStats, func(ctx context.Context) (*erp.DashboardStats, error) {
		return s.store.DashboardStats(ctx, s.today())
	})
}

// GST returns the GST summary for p.
func (s *ReportService) GST(ctx context.Context, p erp.Period) (*erp.GSTSummary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return read(ctx, s.base, cachekey.GSTReport(p), func(ctx context.Context) (*erp.GSTSummary, error) {
		return s.store.GSTSummary(ctx, p)
	})
}

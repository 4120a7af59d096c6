package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// AdminService serves the read-only dashboard.
type AdminService struct {
	stats             store.StatsStorer
	lowStockThreshold int
}

func NewAdminService(stats store.StatsStorer, lowStockThreshold int) *AdminService {
	return &AdminService{stats: stats, lowStockThreshold: lowStockThreshold}
}

// DashboardStats runs every aggregate concurrently. The first failure cancels the rest.
func (s *AdminService) DashboardStats(ctx context.Context) (*domain.AdminStats, error) {
	stats := &domain.AdminStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalUsers, err = s.stats.CountUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalProducts, err = s.stats.CountProducts(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalOrders, err = s.stats.CountOrders(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.OrdersByStatus, err = s.stats.OrdersByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalRevenue, stats.TotalProductsSold, err = s.stats.SalesTotals(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.LowStockProducts, err = s.stats.LowStockProducts(ctx, s.lowStockThreshold)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

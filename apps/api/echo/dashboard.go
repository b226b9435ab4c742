package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) adminDashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	stats, err := s.opts.StatsSvc.ComputeDashboardStats(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"username": claims.Username, "stats": stats})
}

func (s *Server) studentDashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ledger, err := s.opts.FeeSvc.Ledger(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	notices, err := s.noticeViews(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"student":  ledger.Student,
		"record":   ledger.Record,
		"balance":  ledger.Balance,
		"payments": ledger.Payments,
		"notices":  notices,
	})
}

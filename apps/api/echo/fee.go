package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/fee"
)

func (s *Server) manageFees(ctx echo.Context) error {
	overview, err := s.opts.FeeSvc.Overview(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"structures":     overview.Structures,
		"students":       overview.Students,
		"paymentMethods": fee.Methods,
	})
}

func bindNewPayment(ctx echo.Context) (fee.NewPayment, error) {
	var np fee.NewPayment
	if isJSON(ctx) {
		err := ctx.Bind(&np)
		return np, err
	}

	p, err := newFormParser(ctx)
	if err != nil {
		return np, err
	}
	amount, err := fee.ParseAmount(p.str("amountPaid"))
	if err != nil {
		return np, core.NewValidationError(err, core.FieldError{Field: "amountPaid", Error: err.Error()})
	}
	method, err := fee.ParseMethod(p.str("paymentMethod"))
	if err != nil {
		return np, core.NewValidationError(err, core.FieldError{Field: "paymentMethod", Error: err.Error()})
	}
	return fee.NewPayment{
		StudentID: p.str("studentId"),
		Amount:    amount,
		Method:    method,
		Semester:  p.str("semester"),
	}, nil
}

func (s *Server) recordPayment(ctx echo.Context) error {
	setBack(ctx, "/admin/manage-fees")

	np, err := bindNewPayment(ctx)
	if err != nil {
		return err
	}
	receipt, err := s.opts.FeeSvc.RecordPayment(ctx.Request().Context(), np)
	if err != nil {
		return err
	}
	s.opts.Logger.Info("payment recorded", map[string]interface{}{
		"payment": receipt.Payment.ID,
		"student": receipt.Payment.StudentID,
		"amount":  receipt.Payment.Amount,
		"balance": receipt.Balance(),
	})
	return ctx.Redirect(http.StatusSeeOther, "/admin/manage-fees")
}

func (s *Server) studentPayments(ctx echo.Context) error {
	ledger, err := s.opts.FeeSvc.Ledger(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ledger)
}

func bindNewStructure(ctx echo.Context) (fee.NewStructure, error) {
	var ns fee.NewStructure
	if isJSON(ctx) {
		err := ctx.Bind(&ns)
		return ns, err
	}

	p, err := newFormParser(ctx)
	if err != nil {
		return ns, err
	}
	ns = fee.NewStructure{
		Course:       p.str("course"),
		AcademicYear: p.str("academicYear"),
		TotalFee:     p.float("totalFee"),
		Details:      p.str("details"),
	}
	return ns, p.err()
}

func (s *Server) addFeeStructure(ctx echo.Context) error {
	setBack(ctx, "/admin/manage-fees")

	ns, err := bindNewStructure(ctx)
	if err != nil {
		return err
	}
	if _, err = s.opts.FeeSvc.CreateStructure(ctx.Request().Context(), ns); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/manage-fees")
}

func bindUpdateStructure(ctx echo.Context) (fee.UpdateStructure, error) {
	var us fee.UpdateStructure
	if isJSON(ctx) {
		err := ctx.Bind(&us)
		return us, err
	}

	p, err := newFormParser(ctx)
	if err != nil {
		return us, err
	}
	us = fee.UpdateStructure{
		Course:       p.strPtr("course"),
		AcademicYear: p.strPtr("academicYear"),
		TotalFee:     p.floatPtr("totalFee"),
		Details:      p.strPtr("details"),
	}
	return us, p.err()
}

func (s *Server) updateFeeStructure(ctx echo.Context) error {
	setBack(ctx, "/admin/manage-fees")

	us, err := bindUpdateStructure(ctx)
	if err != nil {
		return err
	}
	if _, err = s.opts.FeeSvc.UpdateStructure(ctx.Request().Context(), ctx.Param("id"), us); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/manage-fees")
}

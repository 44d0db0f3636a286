package statements

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/shared"
)

// Service owns every write into statement bodies.
type Service struct {
	repo      Repository
	invoices  InvoiceSource
	payments  PaymentSource
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the statement service.
func NewService(repo Repository, invoices InvoiceSource, payments PaymentSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		invoices:  invoices,
		payments:  payments,
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// CreateStatement starts an empty statement.
func (s *Service) CreateStatement(ctx context.Context, input CreateStatementInput) (Statement, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return Statement{}, err
	}
	if err := httpx.Validate(s.validator, input); err != nil {
		return Statement{}, err
	}
	if input.Date.IsZero() {
		input.Date = s.now()
	}
	details := EmptyDetails()
	details.ContractorName = input.ContractorName
	details.Date = FormatDate(input.Date)
	details.LpoNo = input.LpoNo
	details.Site = input.Site
	raw, err := details.Encode()
	if err != nil {
		return Statement{}, err
	}
	stmt := Statement{
		ContractorID: input.ContractorID,
		Name:         input.Name,
		Type:         input.Type,
		Date:         input.Date,
		Letterhead:   input.Letterhead,
		Details:      details,
		RawDetails:   raw,
	}
	id, err := s.repo.Create(ctx, stmt)
	if err != nil {
		return Statement{}, err
	}
	stmt.ID = id
	return stmt, nil
}

// GetStatement loads one statement with its parsed body.
func (s *Service) GetStatement(ctx context.Context, id int64) (Statement, error) {
	if err := shared.RequireActor(ctx); err != nil {
		return Statement{}, err
	}
	return s.load(ctx, id)
}

// ListStatements lists statements, optionally for one contractor.
func (s *Service) ListStatements(ctx context.Context, contractorID *int64) ([]Statement, error) {
	if err := shared.RequireActor(ctx); err != nil {
		return nil, err
	}
	stmts, err := s.repo.List(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	for i := range stmts {
		stmts[i].Details = s.parse(stmts[i])
	}
	return stmts, nil
}

// DeleteStatement removes a statement.
func (s *Service) DeleteStatement(ctx context.Context, id int64) error {
	if err := shared.RequireAdmin(ctx); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AddInvoiceToStatement appends an invoice line. Adding the same invoice twice is allowed.
func (s *Service) AddInvoiceToStatement(ctx context.Context, statementID, invoiceID int64) (Statement, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return Statement{}, err
	}
	stmt, err := s.load(ctx, statementID)
	if err != nil {
		return Statement{}, err
	}
	inv, err := s.invoices.InvoiceSnapshot(ctx, invoiceID)
	if err != nil {
		return Statement{}, err
	}
	if stmt.ContractorID != nil && !stmt.BelongsTo(inv.ContractorID) {
		return Statement{}, ErrWrongContractor
	}
	stmt.Details.Items = AppendItem(stmt.Details.Items, InvoiceItem(inv))
	return stmt, s.save(ctx, &stmt)
}

// AddPaymentToStatement appends a payment line, rejecting a payment already present.
func (s *Service) AddPaymentToStatement(ctx context.Context, statementID, paymentID int64) (Statement, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return Statement{}, err
	}
	stmt, err := s.load(ctx, statementID)
	if err != nil {
		return Statement{}, err
	}
	if Contains(stmt.Details.Items, PaymentKey(paymentID)) {
		return Statement{}, ErrDuplicatePayment
	}
	pay, err := s.payments.PaymentSnapshot(ctx, paymentID)
	if err != nil {
		return Statement{}, err
	}
	if stmt.ContractorID != nil && !stmt.BelongsTo(pay.ContractorID) {
		return Statement{}, ErrWrongContractor
	}
	stmt.Details.Items = AppendItem(stmt.Details.Items, PaymentItem(pay))
	return stmt, s.save(ctx, &stmt)
}

// RemoveInvoiceFromAllStatements drops the invoice's lines from every statement of the contractor.
func (s *Service) RemoveInvoiceFromAllStatements(ctx context.Context, invoiceID, contractorID int64) (int, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return 0, err
	}
	return s.cascade(ctx, contractorID, func(items []Item) ([]Item, int) {
		return RemoveItems(items, InvoiceKey(invoiceID))
	})
}

// RemovePaymentFromStatements drops the payment's lines from every statement of the contractor.
func (s *Service) RemovePaymentFromStatements(ctx context.Context, paymentID, contractorID int64) (int, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return 0, err
	}
	return s.cascade(ctx, contractorID, func(items []Item) ([]Item, int) {
		return RemoveItems(items, PaymentKey(paymentID))
	})
}

// UpdateInvoiceInAllStatements overwrites the credit of the invoice's lines.
func (s *Service) UpdateInvoiceInAllStatements(ctx context.Context, invoiceID, contractorID int64, newAmount float64) (int, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return 0, err
	}
	credit := decimal.NewFromFloat(newAmount)
	return s.cascade(ctx, contractorID, func(items []Item) ([]Item, int) {
		return UpdateItems(items, InvoiceKey(invoiceID), func(it *Item) {
			it.Credit = credit
		})
	})
}

// UpdatePaymentInStatements pushes edited payment fields into the payment's lines.
func (s *Service) UpdatePaymentInStatements(ctx context.Context, paymentID, contractorID int64, patch PaymentPatch) (int, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return 0, err
	}
	return s.cascade(ctx, contractorID, func(items []Item) ([]Item, int) {
		return UpdateItems(items, PaymentKey(paymentID), func(it *Item) {
			if patch.Amount != nil {
				it.Debit = decimal.NewFromFloat(*patch.Amount)
			}
			if patch.Date != nil {
				it.Date = FormatDate(*patch.Date)
			}
			it.Description = PaymentDescription(patch.Type, patch.ChequeNo)
		})
	})
}

// ReorderItems rearranges lines by id. ids must be a permutation of the current ids.
func (s *Service) ReorderItems(ctx context.Context, statementID int64, ids []string) (Statement, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return Statement{}, err
	}
	stmt, err := s.load(ctx, statementID)
	if err != nil {
		return Statement{}, err
	}
	items, err := Reorder(stmt.Details.Items, ids)
	if err != nil {
		return Statement{}, err
	}
	stmt.Details.Items = items
	return stmt, s.save(ctx, &stmt)
}

// UpdateStatement replaces the body with an edited one after recomputing balances.
func (s *Service) UpdateStatement(ctx context.Context, statementID int64, detailsJSON string) (Statement, error) {
	if err := shared.RequireAdmin(ctx); err != nil {
		return Statement{}, err
	}
	details, err := DecodeDetails(detailsJSON)
	if err != nil {
		return Statement{}, ErrInvalidDetails
	}
	stmt, err := s.repo.Get(ctx, statementID)
	if err != nil {
		return Statement{}, err
	}
	details.Items = RecomputeBalances(details.Items)
	stmt.Details = details
	return stmt, s.save(ctx, &stmt)
}

// ReconcileAll re-syncs every statement against its source documents and
// persists the ones that drifted. Statements with unreadable bodies are skipped.
func (s *Service) ReconcileAll(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult
	stmts, err := s.repo.ListAll(ctx)
	if err != nil {
		return result, err
	}
	lookup := s.sourceLookup(ctx)
	for _, stmt := range stmts {
		result.Scanned++
		details, ok := ParseDetails(stmt.RawDetails)
		if !ok {
			result.Skipped++
			s.logger.Warn("reconcile: unreadable statement details", slog.Int64("statement_id", stmt.ID))
			continue
		}
		next, changed, err := Reconcile(details, lookup)
		if err != nil {
			return result, fmt.Errorf("reconcile statement %d: %w", stmt.ID, err)
		}
		if !changed {
			continue
		}
		stmt.Details = next
		if err := s.save(ctx, &stmt); err != nil {
			return result, fmt.Errorf("reconcile statement %d: %w", stmt.ID, err)
		}
		result.Repaired++
	}
	return result, nil
}

func (s *Service) sourceLookup(ctx context.Context) SourceLookup {
	seen := make(map[ItemKey]*Item)
	return func(key ItemKey) (Item, bool, error) {
		if cached, ok := seen[key]; ok {
			if cached == nil {
				return Item{}, false, nil
			}
			return *cached, true, nil
		}
		var (
			fresh Item
			err   error
		)
		switch key.Kind {
		case KindInvoice:
			var inv InvoiceSnapshot
			if inv, err = s.invoices.InvoiceSnapshot(ctx, key.ID); err == nil {
				fresh = InvoiceItem(inv)
			}
		case KindPayment:
			var pay PaymentSnapshot
			if pay, err = s.payments.PaymentSnapshot(ctx, key.ID); err == nil {
				fresh = PaymentItem(pay)
			}
		}
		if errors.Is(err, ErrInvoiceNotFound) || errors.Is(err, ErrPaymentNotFound) {
			seen[key] = nil
			return Item{}, false, nil
		}
		if err != nil {
			return Item{}, false, err
		}
		seen[key] = &fresh
		return fresh, true, nil
	}
}

func (s *Service) cascade(ctx context.Context, contractorID int64, mutate func([]Item) ([]Item, int)) (int, error) {
	stmts, err := s.repo.List(ctx, &contractorID)
	if err != nil {
		return 0, err
	}
	touched := 0
	for _, stmt := range stmts {
		stmt.Details = s.parse(stmt)
		items, n := mutate(stmt.Details.Items)
		if n == 0 {
			continue
		}
		stmt.Details.Items = items
		if err := s.save(ctx, &stmt); err != nil {
			return touched, err
		}
		touched++
	}
	return touched, nil
}

func (s *Service) load(ctx context.Context, id int64) (Statement, error) {
	stmt, err := s.repo.Get(ctx, id)
	if err != nil {
		return Statement{}, err
	}
	stmt.Details = s.parse(stmt)
	return stmt, nil
}

func (s *Service) parse(stmt Statement) Details {
	details, ok := ParseDetails(stmt.RawDetails)
	if !ok {
		s.logger.Warn("statement details unreadable, using empty ledger", slog.Int64("statement_id", stmt.ID))
	}
	return details
}

func (s *Service) save(ctx context.Context, stmt *Statement) error {
	stmt.Details.Items = RecomputeBalances(stmt.Details.Items)
	raw, err := stmt.Details.Encode()
	if err != nil {
		return err
	}
	if err := s.repo.SaveDetails(ctx, stmt.ID, raw); err != nil {
		return err
	}
	stmt.RawDetails = raw
	return nil
}

// internal/service/pack/pack.go
package pack

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"pillflow-service/internal/domain/customer"
	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/pack"
	"pillflow-service/internal/pkg/clock"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/service/schedule"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type PackStore interface {
	Create(ctx context.Context, p *pack.Pack) error
	FindByID(ctx context.Context, id string) (*pack.Pack, error)
	Update(ctx context.Context, p *pack.Pack) error
	List(ctx context.Context, accountID string, filters *pack.PackListFilters) ([]pack.Pack, int64, error)
	UpdateSchedule(ctx context.Context, accountID, id string, last, next *time.Time) error
}

type CustomerLookup interface {
	FindByID(ctx context.Context, id string) (*customer.Customer, error)
}

type CollectionHistory interface {
	ListCollectionsByPack(ctx context.Context, accountID, packID string) ([]event.Event, error)
}

type PackService struct {
	packRepo     PackStore
	customerRepo CustomerLookup
	history      CollectionHistory
	projector    *schedule.Projector
	clock        clock.Clock
	logger       *zap.Logger
}

func NewPackService(
	packRepo PackStore,
	customerRepo CustomerLookup,
	history CollectionHistory,
	projector *schedule.Projector,
	clk clock.Clock,
	logger *zap.Logger,
) *PackService {
	return &PackService{
		packRepo:     packRepo,
		customerRepo: customerRepo,
		history:      history,
		projector:    projector,
		clock:        clk,
		logger:       logger,
	}
}

// CreatePack creates a pack, optionally assigned to one of the account's
// customers
func (s *PackService) CreatePack(ctx context.Context, accountID string, req *pack.CreatePackRequest) (*pack.Pack, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "packs")
	}

	name := strings.TrimSpace(req.PackName)
	if name == "" {
		return nil, xerrors.NewValidationError("pack_name", "is required")
	}

	customerID, err := s.resolveCustomer(ctx, accountID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	p := &pack.Pack{
		ID:         ulid.Make().String(),
		AccountID:  accountID,
		PackName:   name,
		CustomerID: customerID,
		Status:     pack.StatusActive,
	}

	if err := s.packRepo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create pack", zap.String("account_id", accountID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("pack created",
		zap.String("pack_id", p.ID),
		zap.String("account_id", accountID),
	)

	return p, nil
}

// GetPack retrieves a pack owned by the account
func (s *PackService) GetPack(ctx context.Context, accountID, packID string) (*pack.Pack, error) {
	p, err := s.packRepo.FindByID(ctx, packID)
	if err != nil {
		return nil, err
	}

	if accountID == "" || p.AccountID != accountID {
		return nil, xerrors.NewAuthorizationError(accountID, "pack "+packID)
	}

	return p, nil
}

// ListPacks retrieves packs for an account with filters
func (s *PackService) ListPacks(ctx context.Context, accountID string, filters *pack.PackListFilters) (*pack.PackListResponse, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "packs")
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	packs, total, err := s.packRepo.List(ctx, accountID, filters)
	if err != nil {
		return nil, err
	}

	pages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		pages++
	}

	return &pack.PackListResponse{
		Packs:      packs,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: pages,
	}, nil
}

// ListCustomerPacks lists the packs assigned to one customer
func (s *PackService) ListCustomerPacks(ctx context.Context, accountID, customerID string, filters *pack.PackListFilters) (*pack.PackListResponse, error) {
	if _, err := s.resolveCustomer(ctx, accountID, customerID); err != nil {
		return nil, err
	}
	filters.CustomerID = customerID
	return s.ListPacks(ctx, accountID, filters)
}

// UpdatePack updates a pack's name, customer or status
func (s *PackService) UpdatePack(ctx context.Context, accountID, packID string, req *pack.UpdatePackRequest) (*pack.Pack, error) {
	p, err := s.GetPack(ctx, accountID, packID)
	if err != nil {
		return nil, err
	}

	if req.PackName != nil {
		name := strings.TrimSpace(*req.PackName)
		if name == "" {
			return nil, xerrors.NewValidationError("pack_name", "cannot be empty")
		}
		p.PackName = name
	}
	if req.CustomerID != nil {
		customerID, err := s.resolveCustomer(ctx, accountID, *req.CustomerID)
		if err != nil {
			return nil, err
		}
		p.CustomerID = customerID
	}
	if req.Status != nil {
		if *req.Status != pack.StatusActive && *req.Status != pack.StatusInactive {
			return nil, xerrors.NewValidationError("status", "must be active or inactive")
		}
		p.Status = *req.Status
	}

	if err := s.packRepo.Update(ctx, p); err != nil {
		s.logger.Error("failed to update pack", zap.String("pack_id", packID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("pack updated",
		zap.String("pack_id", packID),
		zap.String("account_id", accountID),
	)

	return p, nil
}

// Schedule re-derives a pack's schedule from its full collection history,
// stores it on the pack and evaluates it against the clock.
func (s *PackService) Schedule(ctx context.Context, accountID, packID string) (*pack.ScheduleResponse, error) {
	if _, err := s.GetPack(ctx, accountID, packID); err != nil {
		return nil, err
	}
	return s.RefreshSchedule(ctx, accountID, packID)
}

// RefreshSchedule re-projects a pack the caller already owns. It never
// trusts the cached columns on the pack row.
func (s *PackService) RefreshSchedule(ctx context.Context, accountID, packID string) (*pack.ScheduleResponse, error) {
	history, err := s.history.ListCollectionsByPack(ctx, accountID, packID)
	if err != nil {
		return nil, err
	}

	proj := s.projector.Project(history)
	if err := s.packRepo.UpdateSchedule(ctx, accountID, packID, proj.LastCollected, proj.NextDue); err != nil {
		return nil, err
	}

	state := s.projector.Evaluate(proj, s.clock.Now())

	s.logger.Debug("pack schedule projected",
		zap.String("pack_id", packID),
		zap.Int("collections", len(history)),
		zap.String("status", string(state.Status)),
	)

	return &pack.ScheduleResponse{
		PackID:        packID,
		LastCollected: proj.LastCollected,
		NextDue:       proj.NextDue,
		Status:        string(state.Status),
		OverdueWeeks:  state.OverdueWeeks,
	}, nil
}

// resolveCustomer checks an optional customer id against the account. An
// empty id yields a NULL reference.
func (s *PackService) resolveCustomer(ctx context.Context, accountID, customerID string) (sql.NullString, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return sql.NullString{}, nil
	}

	c, err := s.customerRepo.FindByID(ctx, customerID)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return sql.NullString{}, xerrors.NewValidationError("customer_id", "unknown customer")
	}
	if err != nil {
		return sql.NullString{}, err
	}
	if c.AccountID != accountID {
		return sql.NullString{}, xerrors.NewAuthorizationError(accountID, "customer "+customerID)
	}

	return sql.NullString{String: c.ID, Valid: true}, nil
}

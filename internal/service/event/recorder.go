// internal/service/event/recorder.go
package event

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pillflow-service/internal/domain/customer"
	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/pack"
	"pillflow-service/internal/pkg/clock"
	xerrors "pillflow-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type EventStore interface {
	Insert(ctx context.Context, e *event.Event) error
	FindByID(ctx context.Context, kind event.Kind, id string) (*event.Event, error)
	UpdateStatus(ctx context.Context, kind event.Kind, accountID, id, status string) error
	List(ctx context.Context, accountID string, filters *event.EventListFilters) ([]event.Event, int64, error)
}

type CustomerLookup interface {
	FindByID(ctx context.Context, id string) (*customer.Customer, error)
}

type PackResolver interface {
	FindByCode(ctx context.Context, accountID, code string) (*pack.Pack, error)
}

// ScheduleRefresher re-projects a pack from its stored history.
type ScheduleRefresher interface {
	RefreshSchedule(ctx context.Context, accountID, packID string) (*pack.ScheduleResponse, error)
}

// CacheInvalidator drops an account's cached aggregates.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, accountID string) error
}

// ActivityNotifier tells live subscribers that an account's data changed.
type ActivityNotifier interface {
	NotifyActivity(accountID string, e *event.Event)
}

type EventService struct {
	eventRepo    EventStore
	customerRepo CustomerLookup
	packRepo     PackResolver
	schedules    ScheduleRefresher
	cache        CacheInvalidator
	notifier     ActivityNotifier
	clock        clock.Clock
	logger       *zap.Logger
}

func NewEventService(
	eventRepo EventStore,
	customerRepo CustomerLookup,
	packRepo PackResolver,
	schedules ScheduleRefresher,
	cache CacheInvalidator,
	notifier ActivityNotifier,
	clk clock.Clock,
	logger *zap.Logger,
) *EventService {
	return &EventService{
		eventRepo:    eventRepo,
		customerRepo: customerRepo,
		packRepo:     packRepo,
		schedules:    schedules,
		cache:        cache,
		notifier:     notifier,
		clock:        clk,
		logger:       logger,
	}
}

// Record validates and persists one collection or check. Once the insert is
// acknowledged the event stands; the cache, schedule and notification
// follow-ups are best effort.
func (s *EventService) Record(ctx context.Context, accountID string, req *event.RecordEventRequest) (*event.Event, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "events")
	}

	e, err := s.build(accountID, req)
	if err != nil {
		return nil, err
	}

	if err := s.attachCustomer(ctx, accountID, e, req.CustomerID); err != nil {
		return nil, err
	}

	if err := s.resolvePack(ctx, accountID, e); err != nil {
		return nil, err
	}

	// last point at which the call can be abandoned without side effects
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.ID = ulid.Make().String()
	e.OccurredAt = s.clock.Now()
	e.Status = event.StatusCompleted

	if err := s.eventRepo.Insert(ctx, e); err != nil {
		s.logger.Error("failed to record event",
			zap.String("account_id", accountID),
			zap.String("kind", string(e.Kind)),
			zap.String("pack_code", e.PackCode),
			zap.Error(err),
		)
		if !xerrors.Is(err, xerrors.ErrPersistence) {
			err = xerrors.NewPersistenceError(fmt.Sprintf("failed to insert %s", e.Kind), err)
		}
		return nil, err
	}

	s.logger.Info("event recorded",
		zap.String("event_id", e.ID),
		zap.String("kind", string(e.Kind)),
		zap.String("account_id", accountID),
		zap.String("pack_code", e.PackCode),
		zap.Bool("pack_resolved", e.PackID.Valid),
	)

	s.afterChange(context.WithoutCancel(ctx), e)

	return e, nil
}

// CorrectStatus changes the status of an existing event, the only mutation
// events accept.
func (s *EventService) CorrectStatus(ctx context.Context, accountID string, kind event.Kind, eventID, status string) (*event.Event, error) {
	if !kind.Valid() {
		return nil, xerrors.NewValidationError("kind", fmt.Sprintf("unknown event kind %q", kind))
	}
	if !event.ValidStatus(status) {
		return nil, xerrors.NewValidationError("status", "must be completed, pending or voided")
	}

	e, err := s.GetEvent(ctx, accountID, kind, eventID)
	if err != nil {
		return nil, err
	}

	if e.Status == status {
		return e, nil
	}

	if err := s.eventRepo.UpdateStatus(ctx, kind, accountID, eventID, status); err != nil {
		return nil, err
	}
	e.Status = status

	s.logger.Info("event status corrected",
		zap.String("event_id", eventID),
		zap.String("kind", string(kind)),
		zap.String("account_id", accountID),
		zap.String("status", status),
	)

	s.afterChange(context.WithoutCancel(ctx), e)

	return e, nil
}

// GetEvent retrieves one event owned by the account
func (s *EventService) GetEvent(ctx context.Context, accountID string, kind event.Kind, eventID string) (*event.Event, error) {
	e, err := s.eventRepo.FindByID(ctx, kind, eventID)
	if err != nil {
		return nil, err
	}

	if accountID == "" || e.AccountID != accountID {
		return nil, xerrors.NewAuthorizationError(accountID, fmt.Sprintf("%s %s", kind, eventID))
	}

	return e, nil
}

// ListEvents pages through an account's events of one kind
func (s *EventService) ListEvents(ctx context.Context, accountID string, filters *event.EventListFilters) (*event.EventListResponse, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "events")
	}

	if filters.Kind == "" {
		filters.Kind = event.KindCollection
	}
	if !filters.Kind.Valid() {
		return nil, xerrors.NewValidationError("kind", fmt.Sprintf("unknown event kind %q", filters.Kind))
	}
	for _, t := range filters.PackTypes {
		if !event.PackType(t).Valid() {
			return nil, xerrors.NewValidationError("pack_types", fmt.Sprintf("unknown pack type %q", t))
		}
	}
	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return nil, xerrors.NewValidationError("to", "must not be before from")
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 50
	}
	if filters.PageSize > 500 {
		filters.PageSize = 500
	}

	events, total, err := s.eventRepo.List(ctx, accountID, filters)
	if err != nil {
		return nil, err
	}

	pages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		pages++
	}

	return &event.EventListResponse{
		Events:     events,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: pages,
	}, nil
}

// ========== Helper Methods ==========

func (s *EventService) build(accountID string, req *event.RecordEventRequest) (*event.Event, error) {
	if !req.Kind.Valid() {
		return nil, xerrors.NewValidationError("kind", "must be collection or check")
	}

	code := strings.TrimSpace(req.PackCode)
	if code == "" {
		return nil, xerrors.NewValidationError("pack_code", "is required")
	}

	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		return nil, xerrors.NewValidationError("operator", "is required")
	}

	count := event.DefaultPackCount
	if req.PackCount != nil {
		if *req.PackCount <= 0 {
			return nil, xerrors.NewValidationError("pack_count", "must be at least 1")
		}
		count = *req.PackCount
	}

	packType := req.PackType.Normalize()
	if !packType.Valid() {
		return nil, xerrors.NewValidationError("pack_type", fmt.Sprintf("unknown pack type %q", req.PackType))
	}

	e := &event.Event{
		Kind:      req.Kind,
		AccountID: accountID,
		PackCode:  code,
		Operator:  operator,
	}

	switch req.Kind {
	case event.KindCollection:
		e.PackType = packType
		e.PackCount = count
	case event.KindCheck:
		notes := strings.TrimSpace(req.Notes)
		e.Notes = sql.NullString{String: notes, Valid: notes != ""}
	}

	return e, nil
}

func (s *EventService) attachCustomer(ctx context.Context, accountID string, e *event.Event, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil
	}

	c, err := s.customerRepo.FindByID(ctx, customerID)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return xerrors.NewValidationError("customer_id", "unknown customer")
	}
	if err != nil {
		return err
	}
	if c.AccountID != accountID {
		return xerrors.NewAuthorizationError(accountID, "customer "+customerID)
	}

	e.CustomerID = sql.NullString{String: c.ID, Valid: true}
	return nil
}

// resolvePack links the event to a pack when the scanned code names one.
// Unknown codes are recorded as scanned.
func (s *EventService) resolvePack(ctx context.Context, accountID string, e *event.Event) error {
	p, err := s.packRepo.FindByCode(ctx, accountID, e.PackCode)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if p.AccountID != accountID {
		return nil
	}

	e.PackID = sql.NullString{String: p.ID, Valid: true}
	if !e.HasCustomer() && p.CustomerID.Valid {
		e.CustomerID = p.CustomerID
	}
	return nil
}

func (s *EventService) afterChange(ctx context.Context, e *event.Event) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, e.AccountID); err != nil {
			s.logger.Warn("failed to invalidate aggregate cache",
				zap.String("account_id", e.AccountID),
				zap.Error(err),
			)
		}
	}

	if e.Kind == event.KindCollection && e.PackID.Valid && s.schedules != nil {
		if _, err := s.schedules.RefreshSchedule(ctx, e.AccountID, e.PackID.String); err != nil {
			s.logger.Warn("failed to refresh pack schedule",
				zap.String("account_id", e.AccountID),
				zap.String("pack_id", e.PackID.String),
				zap.Error(err),
			)
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyActivity(e.AccountID, e)
	}
}

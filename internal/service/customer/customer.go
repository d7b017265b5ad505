// internal/service/customer/customer.go
package customer

import (
	"context"
	"database/sql"
	"strings"

	"pillflow-service/internal/domain/customer"
	xerrors "pillflow-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type CustomerStore interface {
	Create(ctx context.Context, c *customer.Customer) error
	FindByID(ctx context.Context, id string) (*customer.Customer, error)
	Update(ctx context.Context, c *customer.Customer) error
	UpdateStatus(ctx context.Context, accountID, id, status string) error
	List(ctx context.Context, accountID string, filters *customer.CustomerListFilters) ([]customer.Customer, int64, error)
	GetStats(ctx context.Context, accountID string) (*customer.CustomerStats, error)
}

type CustomerService struct {
	customerRepo CustomerStore
	logger       *zap.Logger
}

func NewCustomerService(customerRepo CustomerStore, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// CreateCustomer creates a new customer for an account
func (s *CustomerService) CreateCustomer(ctx context.Context, accountID string, req *customer.CreateCustomerRequest) (*customer.Customer, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "customers")
	}

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, xerrors.NewValidationError("full_name", "is required")
	}
	if req.Phone != "" {
		if err := validatePhoneNumber(req.Phone); err != nil {
			return nil, err
		}
	}

	c := &customer.Customer{
		ID:        ulid.Make().String(),
		AccountID: accountID,
		FullName:  name,
		Email:     nullString(req.Email),
		Phone:     nullString(req.Phone),
		Address:   nullString(req.Address),
		AvatarURL: nullString(req.AvatarURL),
		Status:    customer.StatusActive,
	}

	if err := s.customerRepo.Create(ctx, c); err != nil {
		s.logger.Error("failed to create customer", zap.String("account_id", accountID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("customer created",
		zap.String("customer_id", c.ID),
		zap.String("account_id", accountID),
	)

	return c, nil
}

// GetCustomer retrieves a customer owned by the account
func (s *CustomerService) GetCustomer(ctx context.Context, accountID, customerID string) (*customer.Customer, error) {
	c, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := verifyOwnership(accountID, c); err != nil {
		return nil, err
	}

	return c, nil
}

// ListCustomers retrieves customers for an account with filters
func (s *CustomerService) ListCustomers(ctx context.Context, accountID string, filters *customer.CustomerListFilters) (*customer.CustomerListResponse, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "customers")
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

	customers, total, err := s.customerRepo.List(ctx, accountID, filters)
	if err != nil {
		return nil, err
	}

	return &customer.CustomerListResponse{
		Customers:  customers,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages(total, filters.PageSize),
	}, nil
}

// UpdateCustomer updates a customer's profile
func (s *CustomerService) UpdateCustomer(ctx context.Context, accountID, customerID string, req *customer.UpdateCustomerRequest) (*customer.Customer, error) {
	c, err := s.GetCustomer(ctx, accountID, customerID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, xerrors.NewValidationError("full_name", "cannot be empty")
		}
		c.FullName = name
	}
	if req.Phone != nil {
		if *req.Phone != "" {
			if err := validatePhoneNumber(*req.Phone); err != nil {
				return nil, err
			}
		}
		c.Phone = nullString(*req.Phone)
	}
	if req.Email != nil {
		c.Email = nullString(*req.Email)
	}
	if req.Address != nil {
		c.Address = nullString(*req.Address)
	}
	if req.AvatarURL != nil {
		c.AvatarURL = nullString(*req.AvatarURL)
	}

	if err := s.customerRepo.Update(ctx, c); err != nil {
		s.logger.Error("failed to update customer", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("customer updated",
		zap.String("customer_id", customerID),
		zap.String("account_id", accountID),
	)

	return s.customerRepo.FindByID(ctx, customerID)
}

// ActivateCustomer marks a customer active
func (s *CustomerService) ActivateCustomer(ctx context.Context, accountID, customerID string) error {
	return s.setStatus(ctx, accountID, customerID, customer.StatusActive)
}

// DeactivateCustomer marks a customer inactive. Customers are never deleted
// so their collection history stays attributable.
func (s *CustomerService) DeactivateCustomer(ctx context.Context, accountID, customerID string) error {
	return s.setStatus(ctx, accountID, customerID, customer.StatusInactive)
}

func (s *CustomerService) setStatus(ctx context.Context, accountID, customerID, status string) error {
	if _, err := s.GetCustomer(ctx, accountID, customerID); err != nil {
		return err
	}

	if err := s.customerRepo.UpdateStatus(ctx, accountID, customerID, status); err != nil {
		return err
	}

	s.logger.Info("customer status changed",
		zap.String("customer_id", customerID),
		zap.String("account_id", accountID),
		zap.String("status", status),
	)

	return nil
}

// GetCustomerStats retrieves statistics for an account's customers
func (s *CustomerService) GetCustomerStats(ctx context.Context, accountID string) (*customer.CustomerStats, error) {
	if accountID == "" {
		return nil, xerrors.NewAuthorizationError("", "customer stats")
	}
	return s.customerRepo.GetStats(ctx, accountID)
}

// ========== Helper Methods ==========

func verifyOwnership(accountID string, c *customer.Customer) error {
	if accountID == "" || c.AccountID != accountID {
		return xerrors.NewAuthorizationError(accountID, "customer "+c.ID)
	}
	return nil
}

// validatePhoneNumber accepts digits with an optional leading +, ignoring
// spaces, dashes and parentheses
func validatePhoneNumber(phone string) error {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)

	if len(cleaned) < 7 || len(cleaned) > 15 {
		return xerrors.NewValidationError("phone", "invalid phone number length")
	}

	for i, char := range cleaned {
		if i == 0 && char == '+' {
			continue
		}
		if char < '0' || char > '9' {
			return xerrors.NewValidationError("phone", "phone number must contain only digits")
		}
	}

	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func totalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}

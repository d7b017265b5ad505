package customer

import (
	"context"
	"testing"

	"pillflow-service/internal/domain/customer"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService() (*CustomerService, *mocks.MockCustomerStore) {
	store := mocks.NewMockCustomerStore()
	return NewCustomerService(store, zap.NewNop()), store
}

func TestCreateCustomer(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	c, err := svc.CreateCustomer(ctx, "acc-1", &customer.CreateCustomerRequest{
		FullName: "  Ann Moraa ",
		Phone:    "+254 712-345678",
		Email:    "ann@example.com",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Ann Moraa", c.FullName)
	assert.Equal(t, customer.StatusActive, c.Status)
	assert.True(t, c.Phone.Valid)
	assert.False(t, c.Address.Valid)

	stored, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", stored.AccountID)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, "acc-1", &customer.CreateCustomerRequest{FullName: "   "})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.CreateCustomer(ctx, "acc-1", &customer.CreateCustomerRequest{FullName: "Bo", Phone: "07-ABC"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.CreateCustomer(ctx, "", &customer.CreateCustomerRequest{FullName: "Bo"})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}

func TestCustomerOwnership(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	store.Seed(customer.Customer{ID: "cus-1", AccountID: "acc-2", FullName: "Other", Status: customer.StatusActive})

	_, err := svc.GetCustomer(ctx, "acc-1", "cus-1")
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	name := "Hijacked"
	_, err = svc.UpdateCustomer(ctx, "acc-1", "cus-1", &customer.UpdateCustomerRequest{FullName: &name})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	assert.ErrorIs(t, svc.DeactivateCustomer(ctx, "acc-1", "cus-1"), xerrors.ErrForbidden)

	_, err = svc.GetCustomer(ctx, "acc-1", "missing")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestUpdateCustomer(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	store.Seed(customer.Customer{ID: "cus-1", AccountID: "acc-1", FullName: "Ann", Status: customer.StatusActive})

	name := "Ann M."
	empty := ""
	updated, err := svc.UpdateCustomer(ctx, "acc-1", "cus-1", &customer.UpdateCustomerRequest{FullName: &name, Address: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Ann M.", updated.FullName)
	assert.False(t, updated.Address.Valid)

	blank := " "
	_, err = svc.UpdateCustomer(ctx, "acc-1", "cus-1", &customer.UpdateCustomerRequest{FullName: &blank})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestDeactivateAndActivate(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	store.Seed(customer.Customer{ID: "cus-1", AccountID: "acc-1", FullName: "Ann", Status: customer.StatusActive})

	require.NoError(t, svc.DeactivateCustomer(ctx, "acc-1", "cus-1"))
	stats, err := svc.GetCustomerStats(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalCustomers)
	assert.Equal(t, int64(1), stats.InactiveCustomers)

	require.NoError(t, svc.ActivateCustomer(ctx, "acc-1", "cus-1"))
	c, err := svc.GetCustomer(ctx, "acc-1", "cus-1")
	require.NoError(t, err)
	assert.True(t, c.IsActive())
}

func TestListCustomersPaging(t *testing.T) {
	svc, store := newService()
	store.Seed(
		customer.Customer{ID: "1", AccountID: "acc-1", FullName: "A", Status: customer.StatusActive},
		customer.Customer{ID: "2", AccountID: "acc-1", FullName: "B", Status: customer.StatusActive},
		customer.Customer{ID: "3", AccountID: "acc-1", FullName: "C", Status: customer.StatusActive},
		customer.Customer{ID: "4", AccountID: "acc-2", FullName: "D", Status: customer.StatusActive},
	)

	resp, err := svc.ListCustomers(context.Background(), "acc-1", &customer.CustomerListFilters{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 1, resp.Page)
}

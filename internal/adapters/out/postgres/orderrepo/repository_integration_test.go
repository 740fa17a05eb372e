package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"relay/internal/adapters/out/postgres/orderrepo"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/core/domain/model/order"
	"relay/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OrderRepositoryIntegrationTestSuite runs the reader against a real PostgreSQL
// container.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
}

var transitionAt = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&orderrepo.OrderDTO{}))
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders").Error)
	suite.repository = orderrepo.NewGormOrderRepository(suite.db)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) insert(id, status string, driverID *string) {
	suite.Require().NoError(suite.db.Create(&orderrepo.OrderDTO{
		ID:               id,
		CustomerID:       "c-" + id,
		VendorID:         "v1",
		DriverID:         driverID,
		Status:           status,
		LastTransitionAt: transitionAt,
	}).Error)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_ExistingOrder_ReturnsOrder() {
	driver := "d1"
	suite.insert("123", "out_for_delivery", &driver)

	got, err := suite.repository.Get(context.Background(), kernel.MustEntityID("123"))
	suite.Require().NoError(err)

	suite.Equal("123", got.ID().String())
	suite.Equal("c-123", got.CustomerID().String())
	suite.Equal("v1", got.VendorID().String())
	suite.Equal(order.OutForDelivery, got.Status())
	suite.True(got.HasDriver(kernel.MustEntityID("d1")))
	suite.True(transitionAt.Equal(got.LastTransitionAt()))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_WithoutDriver() {
	suite.insert("123", "confirmed", nil)

	got, err := suite.repository.Get(context.Background(), kernel.MustEntityID("123"))
	suite.Require().NoError(err)

	suite.Nil(got.DriverID())
	suite.Equal(order.Confirmed, got.Status())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NonExistentOrder_ReturnsNotFoundError() {
	got, err := suite.repository.Get(context.Background(), kernel.MustEntityID("missing"))

	suite.Nil(got)
	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_UnknownStatus_ReturnsInvalidValue() {
	suite.insert("123", "lost", nil)

	_, err := suite.repository.Get(context.Background(), kernel.MustEntityID("123"))

	suite.Require().ErrorIs(err, errs.ErrValueIsInvalid)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetActive_SkipsTerminalOrders() {
	suite.insert("1", "confirmed", nil)
	suite.insert("2", "preparing", nil)
	suite.insert("3", "delivered", nil)
	suite.insert("4", "cancelled", nil)

	active, err := suite.repository.GetActive(context.Background())
	suite.Require().NoError(err)

	suite.Require().Len(active, 2)
	suite.Equal("1", active[0].ID().String())
	suite.Equal("2", active[1].ID().String())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetActive_EmptyTable_ReturnsEmptySlice() {
	active, err := suite.repository.GetActive(context.Background())

	suite.Require().NoError(err)
	suite.Empty(active)
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}

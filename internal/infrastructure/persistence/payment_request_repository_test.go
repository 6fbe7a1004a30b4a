package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cashtrack/backend/internal/domain/shared"
	"github.com/cashtrack/backend/internal/domain/tracking"
)

// newMockPaymentRequestReader creates a GormPaymentRequestReader with a mocked SQL connection
func newMockPaymentRequestReader(t *testing.T) (*GormPaymentRequestReader, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPaymentRequestReader(gormDB), mock, mockDB
}

func TestGormPaymentRequestReader_List(t *testing.T) {
	t.Run("queries the category's source doctype", func(t *testing.T) {
		reader, mock, mockDB := newMockPaymentRequestReader(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows([]string{
			"id", "grand_total", "reference_doctype", "reference_name",
			"party", "party_name", "transaction_date", "status", "docstatus",
		}).AddRow("PR-0001", decimal.NewFromInt(1000), "Purchase Order", "PO-0042",
			"SUP-001", "Acme Corp", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "Initiated", 1)

		mock.ExpectQuery(`SELECT \* FROM "payment_requests" WHERE reference_doctype = \$1 AND docstatus = \$2 ORDER BY transaction_date DESC, id DESC`).
			WithArgs("Purchase Order", 1).
			WillReturnRows(rows)

		records, err := reader.List(context.Background(), tracking.CategoryPurchaseOrder, tracking.EntryFilter{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "PR-0001", records[0].ID)
		assert.Equal(t, "PO-0042", records[0].ReferenceName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reference doctype filter is applied as a predicate", func(t *testing.T) {
		reader, mock, mockDB := newMockPaymentRequestReader(t)
		defer mockDB.Close()

		// a known doctype that conflicts with the category source must
		// narrow the query to nothing, not be silently dropped
		mock.ExpectQuery(`SELECT \* FROM "payment_requests" WHERE reference_doctype = \$1 AND docstatus = \$2 AND reference_doctype = \$3 ORDER BY transaction_date DESC, id DESC`).
			WithArgs("Purchase Order", 1, "Sales Order").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		filter := tracking.EntryFilter{}.WithReference("Sales Order", "")
		records, err := reader.List(context.Background(), tracking.CategoryPurchaseOrder, filter)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("remaining filter fields match exactly", func(t *testing.T) {
		reader, mock, mockDB := newMockPaymentRequestReader(t)
		defer mockDB.Close()

		from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`SELECT \* FROM "payment_requests" WHERE reference_doctype = \$1 AND docstatus = \$2 AND id = \$3 AND party = \$4 AND transaction_date >= \$5 ORDER BY transaction_date DESC, id DESC`).
			WithArgs("Purchase Order", 1, "PR-0001", "SUP-001", from).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		filter := tracking.EntryFilter{}.
			WithPaymentRequest("PR-0001").
			WithSupplier("SUP-001").
			WithDateRange(&from, nil)
		_, err := reader.List(context.Background(), tracking.CategoryPurchaseOrder, filter)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPaymentRequestReader_FindByID(t *testing.T) {
	t.Run("maps a missing request to not found", func(t *testing.T) {
		reader, mock, mockDB := newMockPaymentRequestReader(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "payment_requests" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("PR-MISSING", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := reader.FindByID(context.Background(), "PR-MISSING")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

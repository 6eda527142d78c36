package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadhub-data/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAny = errors.New("boom")

func domainBuyer(ownerID string) domain.Buyer {
	return domain.Buyer{
		OwnerID:      ownerID,
		FullName:     "Rahul Sharma",
		Phone:        "9876543210",
		City:         "Pune",
		PropertyType: "Apartment",
		Purpose:      "Buy",
		Timeline:     "3-6m",
		Source:       "Website",
		Status:       domain.DefaultBuyerStatus,
	}
}

func newMockBuyersRepo(t *testing.T) (*PostgresBuyersRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresBuyersRepository(db), mock
}

var buyerRowColumns = []string{
	"buyer_id", "owner_id", "full_name", "phone", "email", "city", "property_type",
	"bhk", "purpose", "budget_min", "budget_max", "timeline", "source", "status",
	"notes", "tags", "created_at", "updated_at",
}

func sampleBuyerRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(buyerRowColumns).AddRow(
		"b-1", "owner-1", "Rahul Sharma", "9876543210", "rahul@example.com", "Pune",
		"Apartment", "2", "Buy", 5000000, 7000000, "3-6m", "Website", "New",
		nil, "Urgent, NRI", now, now,
	)
}

func intPtr(v int) *int { return &v }

func TestBuildBuyerWhere_Empty(t *testing.T) {
	where, args, next := buildBuyerWhere("", BuyerFilters{})
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)
	assert.Equal(t, 1, next)
}

func TestBuildBuyerWhere_BudgetOverlap(t *testing.T) {
	where, args, next := buildBuyerWhere("owner-1", BuyerFilters{
		MinBudget: intPtr(1000),
		MaxBudget: intPtr(2000),
	})

	// NULL 边界无界：上界为NULL的记录对任意min都重叠，下界同理
	assert.Equal(t,
		"owner_id = $1 AND (budget_max IS NULL OR budget_max >= $2) AND (budget_min IS NULL OR budget_min <= $3)",
		where)
	assert.Equal(t, []any{"owner-1", 1000, 2000}, args)
	assert.Equal(t, 4, next)
}

func TestBuildBuyerWhere_SearchReusesOneArg(t *testing.T) {
	where, args, next := buildBuyerWhere("", BuyerFilters{Search: " rahul "})

	assert.Equal(t,
		"(full_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1 OR city ILIKE $1 OR tags ILIKE $1 OR notes ILIKE $1)",
		where)
	assert.Equal(t, []any{"%rahul%"}, args)
	assert.Equal(t, 2, next)
}

func TestBuildBuyerWhere_ExactFilters(t *testing.T) {
	where, args, _ := buildBuyerWhere("owner-1", BuyerFilters{
		City:   "Pune",
		Status: "New",
	})
	assert.Equal(t, "owner_id = $1 AND city = $2 AND status = $3", where)
	assert.Equal(t, []any{"owner-1", "Pune", "New"}, args)
}

func TestCreateBuyer_GeneratesIDAndReadsTimestamps(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO buyers`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	b := domainBuyer("owner-1")
	err := repo.CreateBuyer(context.Background(), &b)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, now, b.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBuyer_NotFound(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM buyers WHERE buyer_id = \$1 AND owner_id = \$2`).
		WithArgs("missing", "owner-1").
		WillReturnRows(sqlmock.NewRows(buyerRowColumns))

	_, err := repo.GetBuyer(context.Background(), "owner-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBuyers_PaginatesAndCounts(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM buyers WHERE owner_id = \$1 AND city = \$2`).
		WithArgs("owner-1", "Pune").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))

	mock.ExpectQuery(`SELECT (.+) FROM buyers WHERE owner_id = \$1 AND city = \$2 ORDER BY updated_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("owner-1", "Pune", 20, 20).
		WillReturnRows(sampleBuyerRow(now))

	buyers, total, err := repo.ListBuyers(context.Background(), "owner-1", BuyerFilters{City: "Pune"}, 2, 20)
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, buyers, 1)
	assert.Equal(t, "Rahul Sharma", buyers[0].FullName)
	require.NotNil(t, buyers[0].BudgetMin)
	assert.Equal(t, 5000000, *buyers[0].BudgetMin)
	assert.Nil(t, buyers[0].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBuyerGuarded_StaleTokenConflict(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)
	token := time.Now().Add(-time.Minute)

	mock.ExpectExec(`UPDATE buyers SET updated_at = now\(\), status = \$1 WHERE buyer_id = \$2 AND owner_id = \$3 AND updated_at = \$4`).
		WithArgs("Contacted", "b-1", "owner-1", token).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateBuyerGuarded(context.Background(), "owner-1", "b-1",
		BuyerPatch{Status: Some("Contacted")}, token)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBuyerGuarded_Success(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)
	token := time.Now()

	// NULL 赋值内联进SET，不占参数位
	mock.ExpectExec(`UPDATE buyers SET updated_at = now\(\), full_name = \$1, tags = NULL WHERE buyer_id = \$2 AND owner_id = \$3 AND updated_at = \$4`).
		WithArgs("New Name", "b-1", "owner-1", token).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateBuyerGuarded(context.Background(), "owner-1", "b-1",
		BuyerPatch{FullName: Some("New Name"), Tags: Null[string]()}, token)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBuyer_NotFound(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)

	mock.ExpectExec(`DELETE FROM buyers WHERE buyer_id = \$1 AND owner_id = \$2`).
		WithArgs("b-1", "owner-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteBuyer(context.Background(), "owner-2", "b-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBuyersBatch_SingleTransaction(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)

	b1 := domainBuyer("owner-1")
	b2 := domainBuyer("owner-1")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO buyers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO buyers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateBuyersBatch(context.Background(), []*domain.Buyer{&b1, &b2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBuyersBatch_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)

	b1 := domainBuyer("owner-1")
	b2 := domainBuyer("owner-1")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO buyers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO buyers`).WillReturnError(errAny)
	mock.ExpectRollback()

	err := repo.CreateBuyersBatch(context.Background(), []*domain.Buyer{&b1, &b2})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSampleTags(t *testing.T) {
	repo, mock := newMockBuyersRepo(t)

	mock.ExpectQuery(`SELECT tags FROM buyers WHERE tags IS NOT NULL ORDER BY updated_at DESC LIMIT \$1`).
		WithArgs(500).
		WillReturnRows(sqlmock.NewRows([]string{"tags"}).AddRow("Urgent, NRI").AddRow("Budget"))

	tags, err := repo.SampleTags(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Urgent, NRI", "Budget"}, tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

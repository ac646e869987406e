package wishlist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/customer-wishlist/internal/identity"
	"github.com/angelmondragon/customer-wishlist/pkg/config"
	"github.com/angelmondragon/customer-wishlist/pkg/db"
	"github.com/angelmondragon/customer-wishlist/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(models.All()...))
	return client.DB()
}

// newTestRepo returns a repository whose clock advances one second per insert.
func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	repo := NewRepository(conn)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return repo, conn
}

func mustAdd(t *testing.T, repo *Repository, productID int64, owner identity.Identity) {
	t.Helper()
	ok, err := repo.Add(context.Background(), productID, owner)
	require.NoError(t, err)
	require.True(t, ok, "add %d for %s", productID, owner)
}

func productIDs(entries []Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ProductID)
	}
	return out
}

func TestAddAndIsInWishlistArePerOwner(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	mustAdd(t, repo, 55, identity.Guest("abc"))

	in, err := repo.IsInWishlist(ctx, 55, identity.Guest("abc"))
	require.NoError(t, err)
	assert.True(t, in)

	in, err = repo.IsInWishlist(ctx, 55, identity.User(9))
	require.NoError(t, err)
	assert.False(t, in)

	in, err = repo.IsInWishlist(ctx, 55, identity.Guest("other"))
	require.NoError(t, err)
	assert.False(t, in)
}

func TestAddDuplicateReturnsFalse(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	mustAdd(t, repo, 7, identity.User(1))
	ok, err := repo.Add(ctx, 7, identity.User(1))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Add(ctx, 7, identity.Guest("tok"))
	require.NoError(t, err)
	assert.True(t, ok, "different owner may save the same product")

	var count int64
	require.NoError(t, conn.Model(&models.WishlistEntry{}).Where("product_id = ?", 7).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, 0, identity.User(1))
	assert.Error(t, err)
	_, err = repo.Add(ctx, 5, identity.Identity{})
	assert.Error(t, err)
	_, err = repo.IsInWishlist(ctx, 5, identity.Guest(""))
	assert.Error(t, err)
}

func TestAddWritesExactlyOneOwnerColumn(t *testing.T) {
	repo, conn := newTestRepo(t)
	mustAdd(t, repo, 1, identity.User(3))
	mustAdd(t, repo, 2, identity.Guest("g"))

	var rows []models.WishlistEntry
	require.NoError(t, conn.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)

	assert.NotNil(t, rows[0].UserID)
	assert.Nil(t, rows[0].Token)
	assert.Nil(t, rows[1].UserID)
	require.NotNil(t, rows[1].Token)
	assert.Equal(t, "g", *rows[1].Token)
	assert.False(t, rows[1].DateCreated.IsZero())
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	mustAdd(t, repo, 10, identity.User(4))
	mustAdd(t, repo, 10, identity.Guest("g"))

	ok, err := repo.Delete(ctx, 10, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	in, err := repo.IsInWishlist(ctx, 10, identity.User(4))
	require.NoError(t, err)
	assert.False(t, in)

	in, err = repo.IsInWishlist(ctx, 10, identity.Guest("g"))
	require.NoError(t, err)
	assert.True(t, in, "guest rows are untouched by delete")

	ok, err = repo.Delete(ctx, 10, 4)
	require.NoError(t, err)
	assert.False(t, ok, "deleting a missing entry is not an error")
}

func TestListByUserNewestFirst(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	entries, err := repo.ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	mustAdd(t, repo, 100, identity.User(2))
	mustAdd(t, repo, 200, identity.User(2))
	mustAdd(t, repo, 300, identity.User(99))
	mustAdd(t, repo, 400, identity.User(2))

	entries, err = repo.ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{400, 200, 100}, productIDs(entries))
	for _, e := range entries {
		id, ok := e.Owner.UserID()
		assert.True(t, ok)
		assert.Equal(t, int64(2), id)
	}
}

func TestListByUserTieBreaksOnID(t *testing.T) {
	repo, _ := newTestRepo(t)
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	mustAdd(t, repo, 1, identity.User(5))
	mustAdd(t, repo, 2, identity.User(5))

	entries, err := repo.ListByUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, productIDs(entries))
}

func TestFilterExisting(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.FilterExisting(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{}, got)

	mustAdd(t, repo, 10, identity.User(1))
	mustAdd(t, repo, 12, identity.Guest("g"))
	mustAdd(t, repo, 10, identity.Guest("h"))

	got, err = repo.FilterExisting(ctx, []int64{10, 11, 12, 10, -3, 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 12}, got, "10 was saved most recently")

	got, err = repo.FilterExisting(ctx, []int64{20, 21})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMergeFoldsGuestIntoUser(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	for _, p := range []int64{1, 2, 3} {
		mustAdd(t, repo, p, identity.Guest("T"))
	}
	for _, p := range []int64{2, 4} {
		mustAdd(t, repo, p, identity.User(8))
	}

	res, err := repo.Merge(ctx, "T", 8)
	require.NoError(t, err)
	require.NoError(t, res.Failures)
	assert.Equal(t, 2, res.Reassigned)
	assert.Equal(t, 1, res.Collapsed)

	entries, err := repo.ListByUser(ctx, 8)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, productIDs(entries))

	var guestRows int64
	require.NoError(t, conn.Model(&models.WishlistEntry{}).Where("token = ?", "T").Count(&guestRows).Error)
	assert.Zero(t, guestRows)

	again, err := repo.Merge(ctx, "T", 8)
	require.NoError(t, err)
	assert.Equal(t, MergeResult{}, again, "second merge is a no-op")

	entries, err = repo.ListByUser(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestMergePreservesDateCreated(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	mustAdd(t, repo, 1, identity.Guest("T"))
	mustAdd(t, repo, 2, identity.User(8))

	_, err := repo.Merge(ctx, "T", 8)
	require.NoError(t, err)

	entries, err := repo.ListByUser(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, productIDs(entries), "reassigned row keeps its older timestamp")
}

func TestMergeContinuesAfterRowFailure(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	for _, p := range []int64{1, 2, 3} {
		mustAdd(t, repo, p, identity.Guest("T"))
	}

	// Guest rows are reassigned in id order, so the second update is product 2.
	updates := 0
	require.NoError(t, conn.Callback().Update().Before("gorm:update").Register("test:fail_second_update", func(tx *gorm.DB) {
		updates++
		if updates == 2 {
			_ = tx.AddError(errors.New("connection reset"))
		}
	}))
	t.Cleanup(func() { _ = conn.Callback().Update().Remove("test:fail_second_update") })

	res, err := repo.Merge(ctx, "T", 8)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Reassigned)
	assert.Zero(t, res.Collapsed)
	require.Len(t, multierr.Errors(res.Failures), 1)
	assert.ErrorContains(t, res.Failures, "reassign product 2")

	entries, err := repo.ListByUser(ctx, 8)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, productIDs(entries))

	in, err := repo.IsInWishlist(ctx, 2, identity.Guest("T"))
	require.NoError(t, err)
	assert.True(t, in, "failed row stays with the guest token")
}

func TestMergeCollapsesRowOnUniqueViolation(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	mustAdd(t, repo, 1, identity.Guest("T"))
	mustAdd(t, repo, 2, identity.Guest("T"))

	// The user saves product 1 from another session after Merge has read
	// their rows, so the reassignment collides with the user/product index.
	raced := false
	require.NoError(t, conn.Callback().Update().Before("gorm:update").Register("test:concurrent_add", func(tx *gorm.DB) {
		if raced {
			return
		}
		raced = true
		if _, err := repo.Add(ctx, 1, identity.User(8)); err != nil {
			_ = tx.AddError(err)
		}
	}))
	t.Cleanup(func() { _ = conn.Callback().Update().Remove("test:concurrent_add") })

	res, err := repo.Merge(ctx, "T", 8)
	require.NoError(t, err)
	require.NoError(t, res.Failures)
	assert.Equal(t, 1, res.Reassigned)
	assert.Equal(t, 1, res.Collapsed)

	entries, err := repo.ListByUser(ctx, 8)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, productIDs(entries))

	var guestRows int64
	require.NoError(t, conn.Model(&models.WishlistEntry{}).Where("token = ?", "T").Count(&guestRows).Error)
	assert.Zero(t, guestRows)
}

func TestMergeRejectsInvalidInput(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Merge(context.Background(), "", 1)
	assert.Error(t, err)
	_, err = repo.Merge(context.Background(), "T", 0)
	assert.Error(t, err)
}

func TestMergeWithoutGuestRows(t *testing.T) {
	repo, _ := newTestRepo(t)
	mustAdd(t, repo, 1, identity.User(8))

	res, err := repo.Merge(context.Background(), "unknown", 8)
	require.NoError(t, err)
	assert.Equal(t, MergeResult{}, res)
}

func TestMergeFetchFailureReturnsError(t *testing.T) {
	repo, conn := newTestRepo(t)
	require.NoError(t, conn.Migrator().DropTable(&models.WishlistEntry{}))

	_, err := repo.Merge(context.Background(), "T", 8)
	assert.Error(t, err)
}

func TestSanitizeProductIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1}, sanitizeProductIDs([]int64{3, 0, 1, 3, -1}))
	assert.Equal(t, []int64{}, sanitizeProductIDs(nil))
}

func TestPurgeGuestsBefore(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	mustAdd(t, repo, 10, identity.Guest("g"))
	mustAdd(t, repo, 11, identity.User(3))
	mustAdd(t, repo, 12, identity.Guest("h"))

	cutoff := time.Date(2026, 1, 1, 12, 0, 3, 0, time.UTC)
	deleted, err := repo.PurgeGuestsBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	in, err := repo.IsInWishlist(ctx, 10, identity.Guest("g"))
	require.NoError(t, err)
	assert.False(t, in)

	in, err = repo.IsInWishlist(ctx, 11, identity.User(3))
	require.NoError(t, err)
	assert.True(t, in, "user rows survive regardless of age")

	in, err = repo.IsInWishlist(ctx, 12, identity.Guest("h"))
	require.NoError(t, err)
	assert.True(t, in)
}

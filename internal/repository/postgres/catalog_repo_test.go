package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/repository/postgres"
	"github.com/ecosort/recycle-assistant/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCategoryRepository_List(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewCategoryRepository(testDB.DB)
	ctx := context.Background()

	testutil.CreateCategory(t, testDB.DB, "Plastic")
	testutil.CreateCategory(t, testDB.DB, "Paper")
	testutil.CreateCategory(t, testDB.DB, "Glass")

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"no filter", "", []string{"Plastic", "Paper", "Glass"}},
		{"case-insensitive substring", "pa", []string{"Paper"}},
		{"prefix", "PL", []string{"Plastic"}},
		{"no match", "metal", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, c := range got {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestCategoryRepository_DuplicateName(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewCategoryRepository(testDB.DB)

	testutil.CreateCategory(t, testDB.DB, "Metal")
	err := repo.Create(context.Background(), &domain.Category{Name: "Metal"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestItemRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewItemRepository(testDB.DB)
	ctx := context.Background()

	plastic := testutil.CreateCategory(t, testDB.DB, "Plastic")
	glass := testutil.CreateCategory(t, testDB.DB, "Glass")

	bottle := testutil.NewItemBuilder(plastic).WithName("Plastic bottle").Build(t, testDB.DB)
	bag := testutil.NewItemBuilder(plastic).WithName("Plastic bag").Build(t, testDB.DB)
	jar := testutil.NewItemBuilder(glass).WithName("Glass jar").Build(t, testDB.DB)

	t.Run("get by id preloads category", func(t *testing.T) {
		got, err := repo.GetByID(ctx, bottle.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Category)
		assert.Equal(t, "Plastic", got.Category.Name)
	})

	t.Run("list with filters and pages", func(t *testing.T) {
		tests := []struct {
			name      string
			filter    domain.ItemFilter
			limit     int
			offset    int
			wantIDs   []uint
			wantTotal int64
		}{
			{"all", domain.ItemFilter{}, 10, 0, []uint{bottle.ID, bag.ID, jar.ID}, 3},
			{"first page", domain.ItemFilter{}, 2, 0, []uint{bottle.ID, bag.ID}, 3},
			{"second page", domain.ItemFilter{}, 2, 2, []uint{jar.ID}, 3},
			{"by name", domain.ItemFilter{Name: "plastic"}, 10, 0, []uint{bottle.ID, bag.ID}, 2},
			{"by category", domain.ItemFilter{CategoryID: glass.ID}, 10, 0, []uint{jar.ID}, 1},
			{"past the end", domain.ItemFilter{}, 2, 4, nil, 3},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				items, total, err := repo.List(ctx, tt.filter, tt.limit, tt.offset)
				require.NoError(t, err)
				assert.Equal(t, tt.wantTotal, total)
				var ids []uint
				for _, it := range items {
					ids = append(ids, it.ID)
				}
				assert.Equal(t, tt.wantIDs, ids)
			})
		}
	})

	t.Run("get by ids skips missing", func(t *testing.T) {
		got, err := repo.GetByIDs(ctx, []uint{jar.ID, 999999, bottle.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, bottle.ID, got[0].ID)
		assert.Equal(t, jar.ID, got[1].ID)

		none, err := repo.GetByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update and delete", func(t *testing.T) {
		bag.Description = "single-use bag"
		bag.CategoryID = glass.ID
		bag.UpdatedAt = time.Now()
		require.NoError(t, repo.Update(ctx, bag))

		got, err := repo.GetByID(ctx, bag.ID)
		require.NoError(t, err)
		assert.Equal(t, "single-use bag", got.Description)
		assert.Equal(t, glass.ID, got.CategoryID)

		require.NoError(t, repo.Delete(ctx, bag.ID))
		assert.ErrorIs(t, repo.Delete(ctx, bag.ID), gorm.ErrRecordNotFound)
	})
}

func TestHistoryRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewHistoryRepository(testDB.DB)
	ctx := context.Background()

	category := testutil.CreateCategory(t, testDB.DB, "Paper")
	items := testutil.SeedItems(t, testDB.DB, category, 3)
	alice, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.HistoryStats{}, stats)

	// repeated views are kept
	testutil.SeedViews(t, testDB.DB, alice.ID, items[0], items[0], items[1])
	testutil.SeedViews(t, testDB.DB, bob.ID, items[2])

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.DistinctUsers)
	assert.Equal(t, int64(4), stats.Interactions)

	n, err := repo.CountByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := repo.ListInteractions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	page, err := repo.ListByUserID(ctx, alice.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestHistoryRepository_OutlivesCatalogRows(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	histories := postgres.NewHistoryRepository(testDB.DB)
	items := postgres.NewItemRepository(testDB.DB)
	ctx := context.Background()

	category := testutil.CreateCategory(t, testDB.DB, "Glass")
	seeded := testutil.SeedItems(t, testDB.DB, category, 2)
	alice, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	testutil.SeedViews(t, testDB.DB, alice.ID, seeded[0], seeded[1])
	testutil.SeedViews(t, testDB.DB, bob.ID, seeded[0])

	require.NoError(t, items.Delete(ctx, seeded[0].ID))

	stats, err := histories.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.HistoryStats{DistinctUsers: 2, Interactions: 3}, stats)

	require.NoError(t, testDB.DB.Delete(&domain.User{}, bob.ID).Error)
	n, err := histories.CountByUserID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMigrate_DropsHistoryForeignKeys(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	migrator := testDB.DB.Migrator()

	for _, name := range []string{"fk_histories_item", "fk_histories_user"} {
		assert.False(t, migrator.HasConstraint(&domain.History{}, name), name)
	}

	require.NoError(t, testDB.DB.Exec(
		"ALTER TABLE histories ADD CONSTRAINT fk_histories_item FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE").Error)
	require.NoError(t, postgres.Migrate(testDB.DB))
	assert.False(t, migrator.HasConstraint(&domain.History{}, "fk_histories_item"))
}

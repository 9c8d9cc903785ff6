package cartstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrikart/storefront/domain"
)

func setupTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func carrot() domain.CartItem {
	return domain.CartItem{ProductID: 1, Name: "Carrot", UnitPrice: decimal.NewFromInt(40), Unit: "kg", Quantity: 2}
}

func apple() domain.CartItem {
	return domain.CartItem{ProductID: 2, Name: "Apple", UnitPrice: decimal.NewFromInt(120), Unit: "kg", Quantity: 1}
}

func TestAdd_ComputesTotals(t *testing.T) {
	db := setupTestDB(t)
	store, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)

	require.NoError(t, store.Add(carrot()))
	require.NoError(t, store.Add(apple()))

	snap := store.Snapshot()
	assert.True(t, snap.Total().Equal(decimal.NewFromInt(200)), "got total %s", snap.Total())

	// one more carrot bumps the existing line, no duplicate entry
	one := carrot()
	one.Quantity = 1
	require.NoError(t, store.Add(one))

	snap = store.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.True(t, snap.Total().Equal(decimal.NewFromInt(240)), "got total %s", snap.Total())
}

func TestAdd_NeverDuplicatesProduct(t *testing.T) {
	db := setupTestDB(t)
	store, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Add(carrot()))
	}

	snap := store.Snapshot()
	seen := map[int64]bool{}
	for _, item := range snap.Items {
		assert.False(t, seen[item.ProductID], "duplicate line for product %d", item.ProductID)
		seen[item.ProductID] = true
	}
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 10, snap.Items[0].Quantity)
}

func TestAdd_ZeroQuantityDefaultsToOne(t *testing.T) {
	db := setupTestDB(t)
	store, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)

	item := carrot()
	item.Quantity = 0
	require.NoError(t, store.Add(item))

	assert.Equal(t, 1, store.Snapshot().Items[0].Quantity)
}

func TestSetQuantity_ZeroRemoves(t *testing.T) {
	db := setupTestDB(t)
	store, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)

	require.NoError(t, store.Add(carrot()))
	require.NoError(t, store.SetQuantity(1, 0))

	assert.Equal(t, -1, store.Snapshot().Find(1))

	// repeating is a no-op, not an error
	require.NoError(t, store.SetQuantity(1, 0))
	require.NoError(t, store.Remove(1))
	assert.Equal(t, -1, store.Snapshot().Find(1))
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	db := setupTestDB(t)
	store, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)

	require.NoError(t, store.Remove(42))
	assert.True(t, store.Snapshot().IsEmpty())
}

func TestPersistRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)

	require.NoError(t, store.Add(carrot()))
	require.NoError(t, store.Add(apple()))
	want := store.Snapshot()

	// a fresh store over the same slot sees the same items and total
	reopened, err := Open(db, "user1", "tab-b")
	require.NoError(t, err)

	got := reopened.Snapshot()
	assert.Equal(t, want.Items, got.Items)
	assert.True(t, want.Total().Equal(got.Total()))
	assert.Equal(t, store.Revision(), reopened.Revision())
}

func TestClear_ErasesSlot(t *testing.T) {
	db := setupTestDB(t)
	store, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)

	require.NoError(t, store.Add(carrot()))
	require.NoError(t, store.Clear())

	assert.True(t, store.Snapshot().IsEmpty())

	err = db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte("user1"))
		assert.Nil(t, data, "slot should be erased, not rewritten empty")
		return nil
	})
	require.NoError(t, err)
}

func TestNotify_AfterPersistInMutationOrder(t *testing.T) {
	db := setupTestDB(t)
	store, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)

	var changes []Change
	store.OnChange(func(c Change) {
		// durable state must already hold the mutation when observers run
		e := db.View(func(tx *bolt.Tx) error {
			if c.Kind == ChangeCleared {
				assert.Nil(t, tx.Bucket([]byte(bucketName)).Get([]byte("user1")))
			} else {
				assert.NotNil(t, tx.Bucket([]byte(bucketName)).Get([]byte("user1")))
			}
			return nil
		})
		require.NoError(t, e)
		changes = append(changes, c)
	})

	require.NoError(t, store.Add(carrot()))
	require.NoError(t, store.SetQuantity(1, 5))
	require.NoError(t, store.Remove(1))
	require.NoError(t, store.Clear())

	require.Len(t, changes, 4)
	assert.Equal(t, ChangeAdded, changes[0].Kind)
	assert.Equal(t, ChangeQuantity, changes[1].Kind)
	assert.Equal(t, ChangeRemoved, changes[2].Kind)
	assert.Equal(t, ChangeCleared, changes[3].Kind)
	for i := 1; i < len(changes); i++ {
		assert.Greater(t, changes[i].Revision, changes[i-1].Revision)
	}
}

func TestReload_AdoptsForeignWrite(t *testing.T) {
	db := setupTestDB(t)
	a, err := Open(db, "user1", "tab-a")
	require.NoError(t, err)
	b, err := Open(db, "user1", "tab-b")
	require.NoError(t, err)

	require.NoError(t, a.Add(carrot()))
	assert.True(t, b.Snapshot().IsEmpty(), "b has not reloaded yet")

	require.NoError(t, b.Reload(context.Background()))

	got := b.Snapshot()
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Carrot", got.Items[0].Name)
	assert.Equal(t, a.Revision(), b.Revision())
}

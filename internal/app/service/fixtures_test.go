package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createUser(t *testing.T, testDB *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func createCategory(t *testing.T, testDB *gorm.DB, name string) *model.Category {
	t.Helper()
	category := &model.Category{Name: name}
	require.NoError(t, testDB.Create(category).Error)
	return category
}

// createProduct creates a product with one SKU per price, each holding qty units.
func createProduct(t *testing.T, testDB *gorm.DB, name string, categoryID *uint, qty int, prices ...float64) *model.Product {
	t.Helper()
	product := &model.Product{Name: name, CategoryID: categoryID}
	require.NoError(t, testDB.Create(product).Error)
	for i, price := range prices {
		sku := &model.ProductSku{
			ProductID: product.ID,
			Sku:       fmt.Sprintf("SKU-%d-%d", product.ID, i),
			Price:     price,
			Quantity:  qty,
		}
		require.NoError(t, testDB.Create(sku).Error)
		product.Skus = append(product.Skus, *sku)
	}
	return product
}

// memoryStore implements Cache, TokenRevoker and SearchRanking in memory.
type memoryStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	revoked  map[string]time.Duration
	searches map[string]float64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		values:   map[string][]byte{},
		revoked:  map[string]time.Duration{},
		searches: map[string]float64{},
	}
}

func (m *memoryStore) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryStore) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	return nil
}

func (m *memoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

func (m *memoryStore) BlacklistToken(_ context.Context, token string, expiry time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[token] = expiry
	return nil
}

func (m *memoryStore) IncrementSearchTerm(_ context.Context, term string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches[term]++
	return nil
}

func (m *memoryStore) TopSearchTerms(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	terms := make([]string, 0, len(m.searches))
	for term := range m.searches {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if m.searches[terms[i]] == m.searches[terms[j]] {
			return terms[i] < terms[j]
		}
		return m.searches[terms[i]] > m.searches[terms[j]]
	})
	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms, nil
}

// recordingFeed captures live feed broadcasts.
type recordingFeed struct {
	mu     sync.Mutex
	topics []string
	data   []interface{}
}

func (f *recordingFeed) Broadcast(topic string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.data = append(f.data, data)
}

// last returns the newest payload sent on topic.
func (f *recordingFeed) last(topic string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.topics) - 1; i >= 0; i-- {
		if f.topics[i] == topic {
			return f.data[i]
		}
	}
	return nil
}

func (f *recordingFeed) count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.topics {
		if t == topic {
			n++
		}
	}
	return n
}

package logic

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextReferenceFormat(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	ref, err := NextReference(db, ReferencePrefixInvestment, now)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0001", ref)

	ref, err = NextReference(db, ReferencePrefixInvestment, now)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0002", ref)
}

func TestNextReferencePrefixesAreIndependent(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		ref, err := NextReference(db, ReferencePrefixInvestment, now)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INV-2024-%04d", i), ref)
	}

	ref, err := NextReference(db, ReferencePrefixTransaction, now)
	require.NoError(t, err)
	assert.Equal(t, "TXN-2024-0001", ref)
}

func TestNextReferenceResetsEachYear(t *testing.T) {
	db := newTestDB(t)

	ref, err := NextReference(db, ReferencePrefixInvestment, time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0001", ref)

	ref, err = NextReference(db, ReferencePrefixInvestment, time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0001", ref)
}

func TestNextReferenceConcurrentGeneration(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	refs := make(map[string]bool)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := NextReference(db, ReferencePrefixTransaction, now)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			refs[ref] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 并发生成的编号两两不同
	assert.Len(t, refs, workers)
}

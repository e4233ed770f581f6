package models_test

import (
	"regexp"
	"sort"
	"sync"
	"testing"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invoiceNumberPattern = regexp.MustCompile(`^[A-Z]\d{4}\d{4}$`)

func TestSequenceHelpers(t *testing.T) {
	assert.Equal(t, "S2025", models.InvoicePrefix("sales", date(2025, 1, 2)))
	assert.Equal(t, "C2024", models.InvoicePrefix(" cash", date(2024, 12, 31)))
	assert.Equal(t, "2025-", models.POPrefix(date(2025, 6, 1)))
	assert.Equal(t, "0007", models.FormatSequence(7, 4))
	assert.Equal(t, "00042", models.FormatSequence(42, 5))

	n, ok := models.ParseSequenceSuffix("S20250012", 4)
	assert.True(t, ok)
	assert.EqualValues(t, 12, n)
	_, ok = models.ParseSequenceSuffix("S2", 4)
	assert.False(t, ok)

	assert.EqualValues(t, 1, models.NextSequenceFromScan(nil, 4))
	assert.EqualValues(t, 10, models.NextSequenceFromScan([]string{"S20250003", "S20250009", "bogus"}, 4))
}

func TestAllocateInvoiceNumberSequential(t *testing.T) {
	ctx := setupDB(t)

	var got []string
	for i := 0; i < 3; i++ {
		tx := config.GetDB().WithContext(ctx).Begin()
		number, err := models.AllocateInvoiceNumber(tx, testCompany, "sales", date(2025, 2, 1), "")
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)
		got = append(got, number)
	}
	assert.Equal(t, []string{"S20250001", "S20250002", "S20250003"}, got)
	for _, n := range got {
		assert.Regexp(t, invoiceNumberPattern, n)
	}

	// a new year starts its own prefix
	tx := config.GetDB().WithContext(ctx).Begin()
	number, err := models.AllocateInvoiceNumber(tx, testCompany, "sales", date(2026, 1, 1), "")
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)
	assert.Equal(t, "S20260001", number)
}

func TestAllocateInvoiceNumberSuppliedIsVerbatim(t *testing.T) {
	ctx := setupDB(t)
	tx := config.GetDB().WithContext(ctx).Begin()
	defer tx.Rollback()
	number, err := models.AllocateInvoiceNumber(tx, testCompany, "sales", date(2025, 2, 1), " MANUAL-1 ")
	require.NoError(t, err)
	assert.Equal(t, "MANUAL-1", number)
}

func TestAllocateInvoiceNumberConcurrent(t *testing.T) {
	ctx := setupDB(t)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := config.GetDB().WithContext(ctx).Begin()
			number, err := models.AllocateInvoiceNumber(tx, testCompany, "sales", date(2025, 5, 5), "")
			if err == nil {
				err = tx.Commit().Error
			} else {
				tx.Rollback()
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, number)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Strings(numbers)
	require.Len(t, numbers, workers)
	for i, n := range numbers {
		assert.Equal(t, "S2025"+models.FormatSequence(int64(i+1), 4), n)
	}
}

func TestAllocatePONumber(t *testing.T) {
	ctx := setupDB(t)
	tx := config.GetDB().WithContext(ctx).Begin()
	number, err := models.AllocatePONumber(tx, testCompany, date(2025, 7, 7), "")
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)
	assert.Equal(t, "2025-00001", number)
}

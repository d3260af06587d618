package inventory_test

import (
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

var billRefPattern = regexp.MustCompile(`^BILL-\d{17}-[0-9A-F]{12}$`)

func TestNewBillRef_Formato(t *testing.T) {
	now := time.Date(2026, 10, 16, 15, 30, 45, 123_000_000, time.FixedZone("COT", -5*3600))
	ref, err := inventory.NewBillRef(now)
	require.NoError(t, err)

	assert.Regexp(t, billRefPattern, ref)
	// El timestamp se expresa en UTC.
	assert.Equal(t, "BILL-20261016203045123-", ref[:23])
}

func TestNewBillRef_OrdenablePorFecha(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var refs []string
	for i := 0; i < 5; i++ {
		ref, err := inventory.NewBillRef(base.Add(time.Duration(i) * time.Second))
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	assert.True(t, sort.StringsAreSorted(refs), "las referencias deben ordenarse por fecha de creación")
}

func TestNewBillRef_SinColisionesConcurrentes(t *testing.T) {
	const n = 2000
	now := time.Now()
	refs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, err := inventory.DefaultBillRefs.Next(now)
			if err == nil {
				refs[i] = ref
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, r := range refs {
		require.NotEmpty(t, r)
		_, dup := seen[r]
		require.False(t, dup, "referencia duplicada: %s", r)
		seen[r] = struct{}{}
	}
}

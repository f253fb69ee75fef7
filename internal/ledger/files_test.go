package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerCSV = `ID,Administration,TransactionDate,Description,Amount,Debet,Credit,ReferenceNumber,Ref1,Ref2,Ref3,Ref4,Category,TaxClassification
a3,Acme,2025-03-01,NETFLIX INTERNATIONAL,-12.99,4700,1002,,,,,,Subscriptions,BTW hoog
a1,Acme,01.01.2025,NETFLIX,-12.99,,1002,,,,,,Subscriptions,BTW hoog
g1,Globex,2025-02-01,RENT,-900.00,4100,1100,,,,,,Housing,
a2,Acme,2024-06-01,KPN,"-40,00",4500,1002,INV-7,,,,,Telecom,BTW hoog
`

const accountsYAML = `Acme:
  - "1002"
  - " 1001"
Globex: ["1100"]
`

const ledgerYAML = `administrations:
  Acme:
    bank_accounts: ["1002"]
    entries:
      - id: a3
        date: "2025-03-01"
        description: NETFLIX INTERNATIONAL
        amount: "-12.99"
        debet: "4700"
        credit: "1002"
        category: Subscriptions
      - id: a1
        date: "2025-01-01"
        description: NETFLIX
        amount: "-12.99"
        credit: "1002"
  Globex:
    bank_accounts: ["1100"]
    entries:
      - id: g1
        date: "2025-02-01"
        description: RENT
        amount: "-900"
        debet: "4100"
        credit: "1100"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCSVStore_FetchEntries(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(writeFile(t, dir, "ledger.csv", ledgerCSV), "", logging.NewMockLogger())
	ctx := context.Background()

	entries, err := store.FetchEntries(ctx, "Acme", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"a2", "a1", "a3"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(t, "-40", entries[0].Amount.String())
	assert.Equal(t, "INV-7", entries[0].ReferenceNumber)
	assert.Equal(t, day(2025, time.January, 1), entries[1].Date)
	assert.Equal(t, "Subscriptions", entries[2].Category)

	ranged, err := store.FetchEntries(ctx, "Acme", day(2025, time.January, 1), time.Time{})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

func TestCSVStore_BadDate(t *testing.T) {
	dir := t.TempDir()
	bad := "ID,Administration,TransactionDate,Description,Amount,Debet,Credit\nx,Acme,someday,X,1,4700,1002\n"
	store := NewCSVStore(writeFile(t, dir, "ledger.csv", bad), "", nil)

	_, err := store.FetchEntries(context.Background(), "Acme", time.Time{}, time.Time{})
	var storeErr *ledgererror.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "parse row 2", storeErr.Operation)
}

func TestCSVStore_MissingFile(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "missing.csv"), "", nil)
	_, err := store.FetchEntries(context.Background(), "Acme", time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestCSVStore_KnownAccounts(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewMockLogger()
	store := NewCSVStore(writeFile(t, dir, "ledger.csv", ledgerCSV), writeFile(t, dir, "accounts.yaml", accountsYAML), logger)

	codes, err := store.FetchKnownAccounts(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "1002"}, codes)

	noAccounts := NewCSVStore("ledger.csv", "", logger)
	codes, err = noAccounts.FetchKnownAccounts(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Empty(t, codes)

	missing := NewCSVStore("ledger.csv", filepath.Join(dir, "nope.yaml"), logger)
	codes, err = missing.FetchKnownAccounts(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Empty(t, codes)
	assert.True(t, logger.HasEntry("WARN", "Known accounts file not found"))
}

func TestYAMLStore(t *testing.T) {
	dir := t.TempDir()
	store := NewYAMLStore(writeFile(t, dir, "ledger.yaml", ledgerYAML), writeFile(t, dir, "accounts.yaml", accountsYAML), nil)
	ctx := context.Background()

	entries, err := store.FetchEntries(ctx, "Acme", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a1", entries[0].ID)
	assert.Equal(t, "Acme", entries[0].Tenant)
	assert.Equal(t, "4700", entries[1].Debet)

	codes, err := store.FetchKnownAccounts(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "1002"}, codes)

	globex, err := store.FetchEntries(ctx, "Globex", day(2026, time.January, 1), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, globex)
}

func TestYAMLStore_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	store := NewYAMLStore(writeFile(t, dir, "ledger.yaml", "administrations: [oops"), "", nil)

	_, err := store.FetchEntries(context.Background(), "Acme", time.Time{}, time.Time{})
	var storeErr *ledgererror.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "yaml", storeErr.Driver)
}

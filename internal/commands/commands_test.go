package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// stubLedger answers every GraphQL POST with a fixed expense list and counts
// the requests.
func stubLedger(t *testing.T) (url string, requests *atomic.Int64) {
	t.Helper()
	var count atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {
				"expenses": {
					"totalCount": 1,
					"nodes": [{
						"id": "exp-1",
						"legacyId": 101,
						"status": "APPROVED",
						"amount": 100000,
						"description": "Jane Doe Family",
						"payee": {"slug": "ukrainian-families-1k"},
						"payoutMethod": null
					}]
				}
			}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL, &count
}

func writeTestConfig(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "payops.yaml")
	content := "ledger:\n  api_url: " + apiURL + "\n  api_key: test-key\n  account_slug: 1kproject\n  payee_slug: ukrainian-families-1k\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payops.yaml")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "account_slug: 1kproject")

	// Refuses to clobber an existing file.
	_, err = execute(t, "init", "--config", path)
	require.Error(t, err)
}

func TestSanctionsCheck(t *testing.T) {
	out, err := execute(t, "sanctions", "check", "95000")
	require.NoError(t, err)
	assert.Contains(t, out, "SANCTIONED")

	out, err = execute(t, "sanctions", "check", "01000")
	require.NoError(t, err)
	assert.Contains(t, out, "clear")
}

func TestCreateDryRun(t *testing.T) {
	apiURL, requests := stubLedger(t)
	cfgPath := writeTestConfig(t, apiURL)

	csvPath := filepath.Join(t.TempDir(), "payouts.csv")
	csv := "NAME,EMAIL,POST CODE,ADDRESS,CITY,PHONE,BANK CARD\n" +
		"Jane Doe,jane@example.com,01000,Street 1,Kyiv,380501111111,4149000011110001\n" +
		"Olena Shevchenko,olena@example.com,02000,Street 2,Lviv,380502222222,4149000011110002\n" +
		"Someone Sanctioned,s@example.com,95000,Street 3,Simferopol,380503333333,4149000011110003\n" +
		",missing@example.com,01000,Street 4,Kyiv,380504444444,4149000011110004\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o644))

	out, err := execute(t, "create", csvPath, "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "dry run")
	// Jane Doe duplicates the remote record, the sanctioned and invalid rows
	// are skipped, Olena proceeds.
	assert.Contains(t, out, "4 processed: 1 approved, 0 paid, 0 created, 3 skipped, 0 failed")
	// Only the dedup index fetch hits the API in dry mode.
	assert.Equal(t, int64(1), requests.Load())
}

func TestPayDryRun(t *testing.T) {
	apiURL, requests := stubLedger(t)
	cfgPath := writeTestConfig(t, apiURL)

	out, err := execute(t, "pay", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "dry run")
	// The single approved record lacks a card token, so it is skipped.
	assert.Contains(t, out, "1 processed: 0 approved, 0 paid, 0 created, 1 skipped, 0 failed")
	assert.Equal(t, int64(1), requests.Load())
}

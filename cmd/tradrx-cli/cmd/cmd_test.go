package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradrx/internal/domain"
	"tradrx/internal/httpapi"
	"tradrx/internal/ledger"
	"tradrx/internal/store"
	"tradrx/internal/util"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewJSONStore(filepath.Join(t.TempDir(), "tradrx_data.json"))
	l, err := ledger.Open(context.Background(), st, ledger.WithLogger(util.Discard()))
	require.NoError(t, err)
	srv := httptest.NewServer(httpapi.NewLedgerServer(l, util.Discard()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestTradeWorkflow(t *testing.T) {
	srv := newServer(t)

	code, out, stderr := run(t, "--api", srv.URL, "trade", "AAPL", "buy", "10", "150")
	require.Equal(t, 0, code, stderr)
	var placed struct {
		Status string `json:"status"`
		Trade  struct {
			ID     int64  `json:"id"`
			Symbol string `json:"symbol"`
		} `json:"trade"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &placed))
	assert.Equal(t, "success", placed.Status)
	assert.Equal(t, int64(1), placed.Trade.ID)
	assert.Contains(t, out, "\n  \"status\"", "output is indented")

	code, _, stderr = run(t, "--api", srv.URL, "trade", "AAPL", "sell", "4", "155")
	require.Equal(t, 0, code, stderr)

	code, out, _ = run(t, "--api", srv.URL, "positions")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"AAPL":6}`, out)

	code, out, _ = run(t, "--api", srv.URL, "stats")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"AAPL":{"count":2,"averagePrice":152.5,"predictedPrice":154.03,"totalPrice":305}}`, out)

	code, out, _ = run(t, "--api", srv.URL, "trade-info", "2")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"action": "sell"`)

	code, out, _ = run(t, "--api", srv.URL, "cancel", "1")
	require.Equal(t, 0, code)
	assert.JSONEq(t, `{"status":"success","id":1}`, out)

	code, out, _ = run(t, "--api", srv.URL, "trades")
	require.Equal(t, 0, code)
	var trades []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, 2.0, trades[0]["id"])
}

func TestRequestFailures(t *testing.T) {
	srv := newServer(t)

	code, _, stderr := run(t, "--api", srv.URL, "trade-info", "42")
	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(stderr, "Request failed: 404"), stderr)

	code, _, stderr = run(t, "--api", srv.URL, "cancel", "42")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Request failed:")
	assert.Contains(t, stderr, "trade not found")

	srv.Close()
	code, _, stderr = run(t, "--api", srv.URL, "positions")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Request failed:")
}

func TestUsageErrors(t *testing.T) {
	cases := [][]string{
		{"trade", "AAPL", "hold", "1", "1"},
		{"trade", "AAPL", "buy", "ten", "1"},
		{"trade", "AAPL", "buy", "1"},
		{"cancel", "abc"},
		{"trade-info"},
		{"nope"},
	}
	for _, args := range cases {
		code, _, stderr := run(t, append([]string{"--api", "http://127.0.0.1:1"}, args...)...)
		assert.Equal(t, 1, code, args)
		assert.True(t, strings.HasPrefix(stderr, "Error: "), "%v: %s", args, stderr)
	}
}

func TestAPIURLFromEnv(t *testing.T) {
	srv := newServer(t)
	t.Setenv("API_URL", srv.URL)

	code, out, stderr := run(t, "positions")
	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `{}`, out)
}

func TestExport(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	for _, args := range [][]string{
		{"trade", "AAPL", "buy", "10", "150"},
		{"trade", "MSFT", "sell", "2", "410.5"},
	} {
		code, _, stderr := run(t, append([]string{"--api", srv.URL}, args...)...)
		require.Equal(t, 0, code, stderr)
	}

	code, out, stderr := run(t, "--api", srv.URL, "export", "--dir", dir)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, `"exported": 2`)

	now := time.Now().UTC()
	archived, err := store.NewParquetStore(dir).ReadTrades(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, archived, 2)
	assert.Equal(t, "AAPL", archived[0].Symbol)
	assert.Equal(t, 410.5, archived[1].Price)
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2024, 1, 2, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 1, 0, 0, time.UTC)
	require.NoError(t, store.NewParquetStore(dir).WriteTrades(context.Background(), []domain.Trade{
		{ID: 1, Symbol: "AAPL", Action: domain.ActionBuy, Quantity: 10, Price: 150, Timestamp: day1},
		{ID: 2, Symbol: "MSFT", Action: domain.ActionSell, Quantity: 2, Price: 410.5, Timestamp: day2},
	}))

	code, out, stderr := run(t, "archive", "--dir", dir, "--from", "2024-01-02", "--to", "2024-01-02")
	require.Equal(t, 0, code, stderr)
	var trades []domain.Trade
	require.NoError(t, json.Unmarshal([]byte(out), &trades), out)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(1), trades[0].ID)

	code, out, stderr = run(t, "archive", "--dir", dir, "--from", "2024-01-01", "--to", "2024-01-31")
	require.Equal(t, 0, code, stderr)
	require.NoError(t, json.Unmarshal([]byte(out), &trades), out)
	require.Len(t, trades, 2)
	assert.Equal(t, "MSFT", trades[1].Symbol)

	code, out, _ = run(t, "archive", "--dir", dir, "--from", "2023-06-01", "--to", "2023-06-01")
	assert.Equal(t, 0, code)
	assert.JSONEq(t, `[]`, out)

	code, _, stderr = run(t, "archive", "--dir", dir, "--from", "yesterday")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid --from date")

	code, _, stderr = run(t, "archive", "--dir", dir, "--from", "2024-01-03", "--to", "2024-01-02")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "before --from")
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "tradrx-cli 0.1.0\n", out)
}

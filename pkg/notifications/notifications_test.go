package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	sln "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-distributor/pkg/distributor"
)

var (
	testDistributor = sln.MustPublicKeyFromBase58("J7cV46t2BLkoHWvmrcG1nK3wgB2D1EmHLko29bEDbnpV")
	testRecipient   = sln.MustPublicKeyFromBase58("SkatebLAUZ9cmbayrLE3wWao3VuFsb1eGE3R7mCs2X2")
)

func TestTelegramPublish(t *testing.T) {
	var payload map[string]interface{}
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewTelegramClient("token", "chat", true)
	client.apiURL = server.URL

	err := client.Publish(context.Background(), testDistributor, distributor.Claimed{
		Index:   7,
		Account: testRecipient,
		Amount:  2_500_000_000,
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottoken/sendMessage", path)
	assert.Equal(t, "chat", payload["chat_id"])
	text := payload["text"].(string)
	assert.Contains(t, text, testRecipient.String())
	assert.Contains(t, text, "2.50")
	assert.Contains(t, text, "<b>Index:</b> 7")
}

func TestTelegramErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewTelegramClient("token", "chat", true)
	client.apiURL = server.URL
	err := client.SendMessage(context.Background(), "hi")
	assert.ErrorContains(t, err, "429")

	disabled := NewTelegramClient("token", "chat", false)
	disabled.apiURL = server.URL
	assert.NoError(t, disabled.SendMessage(context.Background(), "hi"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5m", formatDuration(5*time.Minute))
	assert.Equal(t, "2h 3m", formatDuration(2*time.Hour+3*time.Minute))
	assert.Equal(t, "1d 1h 0m", formatDuration(25*time.Hour))
	assert.Equal(t, "0.50", FormatTokenAmount(500, 3))
}

func TestClaimRecorder(t *testing.T) {
	dir := t.TempDir()
	recorder, err := NewClaimRecorder(dir)
	require.NoError(t, err)
	recorder.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

	first := distributor.Claimed{Index: 0, Account: testRecipient, Amount: 100}
	second := distributor.Claimed{Index: 1, Account: testDistributor, Amount: 200}
	require.NoError(t, recorder.Publish(context.Background(), testDistributor, first))
	require.NoError(t, recorder.Publish(context.Background(), testDistributor, second))

	raw, err := os.ReadFile(filepath.Join(dir, "claims_2026-03.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Timestamp,Distributor,Index,Recipient,Amount\n")

	records, err := recorder.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first, records[0].Event)
	assert.Equal(t, second, records[1].Event)
	assert.Equal(t, testDistributor, records[1].Distributor)
	assert.Equal(t, 2026, records[0].Timestamp.Year())
}

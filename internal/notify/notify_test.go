package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-forge/internal/campaign"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{ChatID: 1, HTTPClient: http.DefaultClient})
	assert.ErrorContains(t, err, "token")

	_, err = New(Options{Token: "123:abc", HTTPClient: http.DefaultClient})
	assert.ErrorContains(t, err, "chat id")

	_, err = New(Options{Token: "123:abc", ChatID: 1})
	assert.ErrorContains(t, err, "http client")
}

func TestObserve_NilNotifierIsSafe(t *testing.T) {
	var n *Notifier

	assert.NotPanics(t, func() {
		n.Observe(campaign.Event{Type: campaign.EventProgress, Status: campaign.StatusGenerating, Index: 1})
		n.Observe(campaign.Event{Type: campaign.EventComplete, Summary: &campaign.RunSummary{}})
		n.Observe(campaign.Event{Type: campaign.EventError, Message: "boom"})
		n.Close()
	})
}

// fakeTelegram answers getMe so the bot constructor succeeds, then
// counts every sendMessage call by method name.
func fakeTelegram(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var methods []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		method := parts[len(parts)-1]

		mu.Lock()
		methods = append(methods, method)
		mu.Unlock()

		w.Header().Set("content-type", "application/json")
		switch method {
		case "getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"forge","username":"forge_bot"}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		}
	}))
	t.Cleanup(srv.Close)

	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(methods))
		copy(out, methods)
		return out
	}
}

func TestObserve_DeliveryIsAsyncAndCloseFlushes(t *testing.T) {
	srv, sent := fakeTelegram(t)

	n, err := New(Options{
		Token:      "123:abc",
		ChatID:     42,
		HTTPClient: srv.Client(),
		Endpoint:   srv.URL + "/bot%s/%s",
	})
	require.NoError(t, err)

	n.Observe(campaign.Event{
		Type:       campaign.EventProgress,
		CampaignID: "campaign_n",
		Index:      1,
		Total:      3,
		Status:     campaign.StatusGenerating,
	})
	n.Observe(campaign.Event{
		Type:       campaign.EventError,
		CampaignID: "campaign_n",
		Message:    "finalize campaign: disk full",
	})

	// Close returns only after the queue has drained
	n.Close()

	var sends int
	for _, method := range sent() {
		if method == "sendMessage" {
			sends++
		}
	}
	assert.Equal(t, 2, sends)
}

func TestSplitByBytes(t *testing.T) {
	short := "hello"
	assert.Equal(t, []string{short}, splitByBytes(short, 10))

	long := strings.Repeat("a", 25)
	parts := splitByBytes(long, 10)
	assert.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("a", 10), parts[0])
	assert.Equal(t, strings.Repeat("a", 5), parts[2])

	// multibyte runes never split mid-sequence
	wide := strings.Repeat("é", 6) // 2 bytes each
	for _, p := range splitByBytes(wide, 5) {
		assert.True(t, utf8.ValidString(p))
		assert.LessOrEqual(t, len(p), 5)
	}
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "hello", truncateByBytes("hello", 10))
	assert.Equal(t, "hel", truncateByBytes("hello", 3))

	out := truncateByBytes(strings.Repeat("é", 4), 5)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "éé", out)
}

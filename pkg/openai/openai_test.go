package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"beertracker/pkg/openai"

	"github.com/stretchr/testify/assert"
)

// fakeChatServer returns an httptest server answering every chat-completions
// call with the given content string.
func fakeChatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(baseURL string) *openai.Client {
	return openai.NewClient(openai.Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
	})
}

func TestVerifyDrink_StructuredVerdict(t *testing.T) {
	server := fakeChatServer(t, http.StatusOK, `{"accepted": true, "message": "That is a beautiful pint"}`)
	defer server.Close()

	accepted, message, err := newTestClient(server.URL).VerifyDrink(context.Background(), "data:image/jpeg;base64,xxx", "IPA")
	assert.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, "That is a beautiful pint", message)
}

func TestVerifyDrink_Rejection(t *testing.T) {
	server := fakeChatServer(t, http.StatusOK, `{"accepted": false, "message": "That is a glass of milk"}`)
	defer server.Close()

	accepted, message, err := newTestClient(server.URL).VerifyDrink(context.Background(), "data:image/jpeg;base64,xxx", "Stout")
	assert.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, "That is a glass of milk", message)
}

func TestVerifyDrink_UnparsableReplyIsUnavailable(t *testing.T) {
	// A free-text reply must become a typed failure, never a guessed verdict.
	server := fakeChatServer(t, http.StatusOK, "definitely a beer, trust me")
	defer server.Close()

	_, _, err := newTestClient(server.URL).VerifyDrink(context.Background(), "data:image/jpeg;base64,xxx", "IPA")
	assert.ErrorIs(t, err, openai.ErrUnavailable)
}

func TestVerifyDrink_HTTPFailureIsUnavailable(t *testing.T) {
	server := fakeChatServer(t, http.StatusInternalServerError, "")
	defer server.Close()

	_, _, err := newTestClient(server.URL).VerifyDrink(context.Background(), "data:image/jpeg;base64,xxx", "IPA")
	assert.ErrorIs(t, err, openai.ErrUnavailable)
}

func TestGenerateRoast(t *testing.T) {
	server := fakeChatServer(t, http.StatusOK, "Beer #3 already, Alice? The goal thanks you for your service.")
	defer server.Close()

	roast, err := newTestClient(server.URL).GenerateRoast(context.Background(), "Alice", "IPA", 3, 999997)
	assert.NoError(t, err)
	assert.Equal(t, "Beer #3 already, Alice? The goal thanks you for your service.", roast)
}

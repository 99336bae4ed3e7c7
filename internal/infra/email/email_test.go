package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/app/policies"
)

func TestSendGridPostsMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	mailer, err := NewSendGrid(SendGridConfig{APIKey: "sg-key", From: "noreply@hostelhunt.co.ke", FromName: "Hostel Hunt", Host: srv.URL}, nil)
	require.NoError(t, err)

	err = mailer.Send(context.Background(), policies.Email{
		To:      "student@example.com",
		Subject: "Booking confirmed",
		HTML:    "<p>See you soon</p>",
		Text:    "See you soon",
	})
	require.NoError(t, err)
	assert.Equal(t, "Booking confirmed", got["subject"])
	from, _ := got["from"].(map[string]any)
	assert.Equal(t, "noreply@hostelhunt.co.ke", from["email"])
}

func TestSendGridReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid"}]}`))
	}))
	defer srv.Close()

	mailer, err := NewSendGrid(SendGridConfig{APIKey: "sg-key", From: "noreply@hostelhunt.co.ke", Host: srv.URL}, nil)
	require.NoError(t, err)
	err = mailer.Send(context.Background(), policies.Email{To: "student@example.com", Subject: "x", Text: "x"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestNewSendGridRequiresKey(t *testing.T) {
	_, err := NewSendGrid(SendGridConfig{From: "noreply@hostelhunt.co.ke"}, nil)
	assert.Error(t, err)
}

func TestLogMailerNeverFails(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), policies.Email{To: "a@example.com"}))
}

package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendSMS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+821012345678", r.FormValue("To"))
		assert.Equal(t, "+15005550006", r.FormValue("From"))
		assert.Equal(t, "쿠폰 코드: RV-1234", r.FormValue("Body"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1","to":"+821012345678","status":"queued"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{AccountSID: "AC123", AuthToken: "secret", BaseURL: server.URL, From: "+15005550006"})
	require.NoError(t, err)

	msg, err := client.SendSMS(context.Background(), "+821012345678", "쿠폰 코드: RV-1234")
	require.NoError(t, err)
	assert.Equal(t, "SM1", msg.SID)
}

func TestClient_SendSMS_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21604,"message":"A 'To' phone number is required.","status":400}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{AccountSID: "AC123", AuthToken: "secret", BaseURL: server.URL, From: "+15005550006"})
	require.NoError(t, err)

	_, err = client.SendSMS(context.Background(), "+821012345678", "hi")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "21604")

	_, err = client.SendSMS(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

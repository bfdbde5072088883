package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestGatewaySMSSend(t *testing.T) {
	var got smsPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewGatewaySMS(srv.URL, time.Second, 0, nil)
	require.NoError(t, sender.Send(context.Background(), "201001234567", "123456 is your Portal verification code."))

	want := smsPayload{PhoneNumber: "201001234567", Text: "123456 is your Portal verification code."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestGatewaySMSRetriesThenReportsStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	sender := NewGatewaySMS(srv.URL, time.Second, 1, nil)
	sender.client.RetryWaitMin = time.Millisecond
	sender.client.RetryWaitMax = time.Millisecond

	err := sender.Send(context.Background(), "2010", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
	assert.EqualValues(t, 2, calls.Load())
}

func TestGatewaySMSClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad number", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewGatewaySMS(srv.URL, time.Second, 3, nil).Send(context.Background(), "x", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.EqualValues(t, 1, calls.Load())
}

func TestVerificationMessage(t *testing.T) {
	msg, err := verificationMessage("noreply@example.com", "jane@example.com", "RDMC Portal", "654321")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sign in to RDMC Portal"}, msg.GetGenHeader(mail.HeaderSubject))
	assert.Len(t, msg.GetTo(), 1)

	_, err = verificationMessage("noreply@example.com", "not an address", "RDMC Portal", "1")
	assert.Error(t, err)
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := limiter.Allow(ctx, "jane")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}

	ok, _ := limiter.Allow(ctx, "john")
	assert.True(t, ok, "keys are counted separately")

	now = now.Add(time.Minute)
	ok, _ = limiter.Allow(ctx, "jane")
	assert.True(t, ok, "a new window resets the count")

	unlimited := NewMemoryLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		ok, _ := unlimited.Allow(ctx, "jane")
		assert.True(t, ok)
	}
}

func TestLogSendersNeverFail(t *testing.T) {
	assert.NoError(t, NewLogMailer(nil).SendVerificationCode(context.Background(), "a@b.c", "1"))
	assert.NoError(t, NewLogSMS(nil).Send(context.Background(), "1", "x"))
}

package callback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaketSinghRajput/honeycomb/internal/intel"
	"github.com/SaketSinghRajput/honeycomb/internal/session"
)

type stubEnricher struct {
	keywords []string
	gotText  string
}

func (s *stubEnricher) SuspiciousKeywords(transcript string) []string {
	s.gotText = transcript
	return s.keywords
}

type stubArchive struct {
	recordErr    error
	recorded     [][]byte
	deliveredIDs []int64
}

func (s *stubArchive) Record(_ context.Context, _ string, payload []byte) (int64, error) {
	if s.recordErr != nil {
		return 0, s.recordErr
	}
	s.recorded = append(s.recorded, payload)
	return int64(len(s.recorded)), nil
}

func (s *stubArchive) MarkDelivered(_ context.Context, id int64) error {
	s.deliveredIDs = append(s.deliveredIDs, id)
	return nil
}

func TestDeliver_PostsAggregatedPayload(t *testing.T) {
	var got Payload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"received","caseId":"case-77"}`))
	}))
	defer srv.Close()

	reporter := NewReporter(srv.URL, time.Second)
	report := &SessionReport{
		SessionID:  "sess-1",
		TurnCount:  6,
		Terminated: true,
		Items: []intel.Item{
			{Kind: intel.KindUPI, Value: "pay@upi", Confidence: 0.9},
			{Kind: intel.KindUPI, Value: "pay@upi", Confidence: 0.9},
			{Kind: intel.KindUPI, Value: "alt@okbank", Confidence: 0.9},
			{Kind: intel.KindPhone, Value: "+919876543210", Confidence: 0.9},
			{Kind: intel.KindURL, Value: "http://kyc-update.in/claim", Confidence: 0.9},
			{Kind: intel.KindAccount, Value: "123456789012", Confidence: 0.8},
		},
		History: []session.Exchange{
			{User: "Your account will be blocked, act now", Assistant: "Which account do you mean?"},
		},
	}

	ack, err := reporter.Deliver(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "received", ack["status"])
	assert.Equal(t, "case-77", ack["caseId"])

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.True(t, got.ScamDetected)
	assert.Equal(t, 6, got.TotalMessagesExchanged)
	assert.Equal(t, []string{"alt@okbank", "pay@upi"}, got.ExtractedIntelligence.UPIIDs)
	assert.Equal(t, []string{"+919876543210"}, got.ExtractedIntelligence.PhoneNumbers)
	assert.Equal(t, []string{"http://kyc-update.in/claim"}, got.ExtractedIntelligence.PhishingLinks)
	assert.Equal(t, []string{"123456789012"}, got.ExtractedIntelligence.BankAccounts)
	assert.Equal(t, []string{"urgency"}, got.ExtractedIntelligence.SuspiciousKeywords)
	assert.Equal(t, "Scammer requested payment via UPI; Exchange of phone numbers observed; Urgency tactics used", got.AgentNotes)
}

func TestDeliver_EndpointErrorReturnsNoAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	reporter := NewReporter(srv.URL, time.Second)
	ack, err := reporter.Deliver(context.Background(), &SessionReport{SessionID: "sess-2", TurnCount: 3})
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Nil(t, ack)
}

func TestDeliver_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	reporter := NewReporter(srv.URL, time.Second)
	_, err := reporter.Deliver(context.Background(), &SessionReport{SessionID: "sess-3"})
	require.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestDeliver_NonJSONAckDegradesToStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("received"))
	}))
	defer srv.Close()

	reporter := NewReporter(srv.URL, time.Second)
	ack, err := reporter.Deliver(context.Background(), &SessionReport{SessionID: "sess-4"})
	require.NoError(t, err)
	assert.Equal(t, Ack{"status_code": http.StatusOK}, ack)
}

func TestDeliver_ArchivesBeforePosting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"received"}`))
	}))
	defer srv.Close()

	arch := &stubArchive{}
	reporter := NewReporter(srv.URL, time.Second, WithArchive(arch))
	_, err := reporter.Deliver(context.Background(), &SessionReport{SessionID: "sess-5", TurnCount: 4})
	require.NoError(t, err)

	require.Len(t, arch.recorded, 1)
	assert.Contains(t, string(arch.recorded[0]), `"sessionId":"sess-5"`)
	assert.Equal(t, []int64{1}, arch.deliveredIDs)
}

func TestDeliver_ArchiveFailureDoesNotBlockDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"received"}`))
	}))
	defer srv.Close()

	arch := &stubArchive{recordErr: errors.New("disk full")}
	reporter := NewReporter(srv.URL, time.Second, WithArchive(arch))
	ack, err := reporter.Deliver(context.Background(), &SessionReport{SessionID: "sess-6"})
	require.NoError(t, err)
	assert.NotNil(t, ack)
	assert.Empty(t, arch.deliveredIDs)
}

func TestDeliver_FailedPostLeavesRecordUndelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	arch := &stubArchive{}
	reporter := NewReporter(srv.URL, time.Second, WithArchive(arch))
	_, err := reporter.Deliver(context.Background(), &SessionReport{SessionID: "sess-7"})
	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.Len(t, arch.recorded, 1)
	assert.Empty(t, arch.deliveredIDs)
}

func TestBuildPayload_RoutesUnknownNumericKindsToAccounts(t *testing.T) {
	reporter := NewReporter("http://localhost", time.Second)
	payload := reporter.BuildPayload(context.Background(), &SessionReport{
		SessionID: "sess-8",
		Items: []intel.Item{
			{Kind: "reference", Value: "4111222233334444"},
			{Kind: intel.KindOrganization, Value: "Reserve Bank"},
			{Kind: intel.KindEmail, Value: "refund@scam.example"},
			{Kind: intel.KindAccount, Value: ""},
		},
	})

	assert.Equal(t, []string{"4111222233334444"}, payload.ExtractedIntelligence.BankAccounts)
	assert.Empty(t, payload.ExtractedIntelligence.UPIIDs)
	assert.Empty(t, payload.ExtractedIntelligence.PhoneNumbers)
	assert.Empty(t, payload.ExtractedIntelligence.PhishingLinks)
}

func TestBuildPayload_AgentNotes(t *testing.T) {
	tests := []struct {
		name    string
		items   []intel.Item
		history []session.Exchange
		want    string
	}{
		{
			name:  "upi observed",
			items: []intel.Item{{Kind: intel.KindUPI, Value: "pay@upi"}},
			want:  "Scammer requested payment via UPI",
		},
		{
			name:  "phone observed",
			items: []intel.Item{{Kind: intel.KindPhone, Value: "+919876543210"}},
			want:  "Exchange of phone numbers observed",
		},
		{
			name: "urgency in agent reply",
			history: []session.Exchange{
				{User: "hello", Assistant: "Please confirm your details"},
			},
			want: "Urgency tactics used",
		},
		{
			name: "nothing observed",
			history: []session.Exchange{
				{User: "hello there", Assistant: "how can I help"},
			},
			want: "No clear payment requests observed; normal engagement",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter := NewReporter("http://localhost", time.Second)
			payload := reporter.BuildPayload(context.Background(), &SessionReport{
				SessionID: "sess-9",
				Items:     tt.items,
				History:   tt.history,
			})
			assert.Equal(t, tt.want, payload.AgentNotes)
		})
	}
}

func TestBuildPayload_EnricherScansCallerSideOnly(t *testing.T) {
	enricher := &stubEnricher{keywords: []string{"otp", "urgent", "otp"}}
	reporter := NewReporter("http://localhost", time.Second, WithEnricher(enricher))
	payload := reporter.BuildPayload(context.Background(), &SessionReport{
		SessionID: "sess-10",
		History: []session.Exchange{
			{User: "share the otp now", Assistant: "I never share codes"},
			{User: "this is urgent", Assistant: "let me check"},
		},
	})

	assert.Equal(t, "share the otp now this is urgent", enricher.gotText)
	assert.Equal(t, []string{"otp", "urgent"}, payload.ExtractedIntelligence.SuspiciousKeywords)
}

func TestBuildPayload_FallbackKeywordScan(t *testing.T) {
	reporter := NewReporter("http://localhost", time.Second)
	payload := reporter.BuildPayload(context.Background(), &SessionReport{
		SessionID: "sess-11",
		History:   []session.Exchange{{User: "share the OTP immediately", Assistant: "pardon?"}},
	})
	assert.Equal(t, []string{"urgency"}, payload.ExtractedIntelligence.SuspiciousKeywords)
}

func TestNewReporter_DefaultTimeout(t *testing.T) {
	reporter := NewReporter("http://localhost", 0)
	assert.Equal(t, DefaultTimeout, reporter.client.Timeout)
}

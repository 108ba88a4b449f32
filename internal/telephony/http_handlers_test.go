package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type stubVoice struct {
	turn      VoiceTurnRequest
	status    CallStatusRequest
	reply     VoiceReply
	err       error
	statusErr error
}

func (s *stubVoice) HandleTurn(_ context.Context, req VoiceTurnRequest) (VoiceReply, error) {
	s.turn = req
	return s.reply, s.err
}

func (s *stubVoice) HandleStatus(_ context.Context, req CallStatusRequest) error {
	s.status = req
	return s.statusErr
}

func newWebhookRouter(h TwilioWebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/twilio/voice", h.HandleVoice)
	r.POST("/webhooks/twilio/status", h.HandleStatus)
	return r
}

func postForm(r *gin.Engine, path string, form url.Values, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func voiceForm() url.Values {
	f := url.Values{}
	f.Set("CallSid", "CA1")
	f.Set("From", "+15551234567")
	f.Set("To", "+15557654321")
	f.Set("CallStatus", "in-progress")
	f.Set("SpeechResult", "Jane Doe")
	return f
}

func TestHandleVoice_RendersReply(t *testing.T) {
	v := &stubVoice{reply: VoiceReply{Say: "Thanks. What's the service address?", Gather: true}}
	r := newWebhookRouter(TwilioWebhookHandler{
		Voice:             v,
		CompanyIDResolver: NumberResolver(map[string]string{"+15557654321": "co_1"}, ""),
		Now:               func() time.Time { return time.Unix(1700000000, 0).UTC() },
	})

	w := postForm(r, "/webhooks/twilio/voice", voiceForm(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `action="/webhooks/twilio/voice"`) {
		t.Fatalf("expected gather back to the voice webhook: %s", w.Body.String())
	}
	if v.turn.CompanyID != "co_1" || v.turn.SpeechResult != "Jane Doe" || v.turn.ProviderCallID != "CA1" {
		t.Fatalf("unexpected turn: %+v", v.turn)
	}
}

func TestHandleVoice_FallbackOnError(t *testing.T) {
	v := &stubVoice{err: errors.New("db down")}
	r := newWebhookRouter(TwilioWebhookHandler{Voice: v, CompanyIDResolver: NumberResolver(nil, "co_1")})

	w := postForm(r, "/webhooks/twilio/voice", voiceForm(), "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<Hangup>") {
		t.Fatalf("expected fallback hangup twiml, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleVoice_UnknownNumber(t *testing.T) {
	r := newWebhookRouter(TwilioWebhookHandler{Voice: &stubVoice{}, CompanyIDResolver: NumberResolver(nil, "")})
	w := postForm(r, "/webhooks/twilio/voice", voiceForm(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleVoice_VerifiesSignature(t *testing.T) {
	v := &stubVoice{reply: VoiceReply{Say: "hi", Hangup: true}}
	h := TwilioWebhookHandler{
		Voice:             v,
		CompanyIDResolver: NumberResolver(nil, "co_1"),
		AuthToken:         "secret",
		BaseURL:           "https://hvac.example.com",
	}
	r := newWebhookRouter(h)
	form := voiceForm()

	if w := postForm(r, "/webhooks/twilio/voice", form, "bogus"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	sig := TwilioSignature("secret", "https://hvac.example.com/webhooks/twilio/voice", form)
	if w := postForm(r, "/webhooks/twilio/voice", form, sig); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid signature, got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	v := &stubVoice{}
	r := newWebhookRouter(TwilioWebhookHandler{Voice: v, CompanyIDResolver: NumberResolver(nil, "co_1")})

	form := voiceForm()
	form.Set("CallStatus", "completed")
	form.Set("CallDuration", "61")
	w := postForm(r, "/webhooks/twilio/status", form, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if v.status.CallStatus != "completed" || v.status.Duration != 61 || v.status.CompanyID != "co_1" {
		t.Fatalf("unexpected status: %+v", v.status)
	}
}

func TestParseNumberCompanies(t *testing.T) {
	m, err := ParseNumberCompanies("+15550001111=co_1, +15550002222 = co_2")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if m["+15550001111"] != "co_1" || m["+15550002222"] != "co_2" {
		t.Fatalf("unexpected map: %v", m)
	}
	if _, err := ParseNumberCompanies("+1555"); err == nil {
		t.Fatalf("expected error for missing company")
	}
}

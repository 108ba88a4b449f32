package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TwilioVoiceForm captures the subset of voice webhook fields we care about.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/twiml
//
// Keep it minimal and provider-adapter-only.
type TwilioVoiceForm struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	Direction    string
	CallStatus   string
	CallDuration string
	SpeechResult string
	Confidence   string
	Digits       string
	CallerName   string
	FromCity     string
	FromState    string
	FromZip      string
}

func ParseTwilioVoiceForm(r *http.Request) (TwilioVoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioVoiceForm{}, err
	}
	f := TwilioVoiceForm{
		CallSid:      r.PostFormValue("CallSid"),
		AccountSid:   r.PostFormValue("AccountSid"),
		From:         normalizePhone(r.PostFormValue("From")),
		To:           normalizePhone(r.PostFormValue("To")),
		Direction:    r.PostFormValue("Direction"),
		CallStatus:   r.PostFormValue("CallStatus"),
		CallDuration: r.PostFormValue("CallDuration"),
		SpeechResult: strings.TrimSpace(r.PostFormValue("SpeechResult")),
		Confidence:   r.PostFormValue("Confidence"),
		Digits:       strings.TrimSpace(r.PostFormValue("Digits")),
		CallerName:   r.PostFormValue("CallerName"),
		FromCity:     r.PostFormValue("FromCity"),
		FromState:    r.PostFormValue("FromState"),
		FromZip:      r.PostFormValue("FromZip"),
	}
	return f, nil
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return s
}

func (f TwilioVoiceForm) ToVoiceTurnRequest(companyID string, occurredAt time.Time) VoiceTurnRequest {
	raw, _ := json.Marshal(f)
	conf, _ := strconv.ParseFloat(f.Confidence, 64)
	return VoiceTurnRequest{
		CompanyID:      companyID,
		ProviderCallID: f.CallSid,
		From:           f.From,
		To:             f.To,
		CallStatus:     f.CallStatus,
		SpeechResult:   f.SpeechResult,
		Digits:         f.Digits,
		Confidence:     conf,
		OccurredAt:     occurredAt,
		RawPayload:     string(raw),
	}
}

func (f TwilioVoiceForm) ToCallStatusRequest(companyID string, occurredAt time.Time) CallStatusRequest {
	dur, _ := strconv.Atoi(f.CallDuration)
	return CallStatusRequest{
		CompanyID:      companyID,
		ProviderCallID: f.CallSid,
		From:           f.From,
		To:             f.To,
		CallStatus:     f.CallStatus,
		Duration:       dur,
		OccurredAt:     occurredAt,
	}
}

// TwilioSignature computes X-Twilio-Signature for a form POST to fullURL:
// base64(HMAC-SHA1(authToken, fullURL + each key and value sorted by key)).
func TwilioSignature(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		vals := append([]string(nil), params[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidTwilioSignature reports whether signature matches the request parameters.
func ValidTwilioSignature(authToken, fullURL string, params url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	want := TwilioSignature(authToken, fullURL, params)
	return hmac.Equal([]byte(want), []byte(signature))
}

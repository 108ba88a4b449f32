package telephony

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hvac-backoffice/internal/routing"
	"hvac-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

const fallbackPrompt = "Sorry, we're having trouble right now. Please call back in a few minutes."

var ErrUnknownNumber = errors.New("telephony: unknown dialed number")

// TwilioWebhookHandler converts Twilio webhooks to internal types,
// delegates to the voice handler, and writes TwiML.
//
// No business logic here.
//
// Tenant scoping:
//   - company_id is resolved from the dialed number and passed explicitly.
type TwilioWebhookHandler struct {
	Voice VoiceHandler

	// CompanyIDResolver resolves which company owns the dialed number.
	CompanyIDResolver func(c *gin.Context, toNumber string) (string, error)

	// AuthToken and BaseURL enable X-Twilio-Signature verification when both are set.
	AuthToken string
	BaseURL   string

	Now func() time.Time
}

func (h TwilioWebhookHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// parse verifies the signature, parses the form and resolves the company.
// It writes the error response itself and returns ok=false.
func (h TwilioWebhookHandler) parse(c *gin.Context) (TwilioVoiceForm, string, bool) {
	log := logger.FromGin(c)

	if h.Voice == nil || h.CompanyIDResolver == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "voice handler not configured"})
		return TwilioVoiceForm{}, "", false
	}

	form, err := ParseTwilioVoiceForm(c.Request)
	if err != nil {
		log.Warn("twilio webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return TwilioVoiceForm{}, "", false
	}

	if h.AuthToken != "" && h.BaseURL != "" {
		fullURL := h.BaseURL + c.Request.URL.RequestURI()
		if !ValidTwilioSignature(h.AuthToken, fullURL, c.Request.PostForm, c.GetHeader("X-Twilio-Signature")) {
			log.Warn("twilio signature rejected", "call_sid", form.CallSid)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return TwilioVoiceForm{}, "", false
		}
	}

	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return TwilioVoiceForm{}, "", false
	}

	companyID, err := h.CompanyIDResolver(c, form.To)
	if err != nil {
		log.Warn("company resolution failed", "to", form.To, "err", err)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown destination"})
		return TwilioVoiceForm{}, "", false
	}
	return form, companyID, true
}

// HandleVoice serves both the initial ring and every gathered reply.
func (h TwilioWebhookHandler) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)

	form, companyID, ok := h.parse(c)
	if !ok {
		return
	}

	in := form.ToVoiceTurnRequest(companyID, h.now())
	ctx := logger.WithAttrs(c.Request.Context(), "company_id", companyID, "call_sid", form.CallSid)
	ctx = routing.WithClientIP(ctx, c.ClientIP())

	reply, err := h.Voice.HandleTurn(ctx, in)
	if err != nil {
		log.Error("voice turn failed", "company_id", companyID, "call_sid", form.CallSid, "err", err)
		reply = VoiceReply{Say: fallbackPrompt, Hangup: true}
	}

	twiml, err := RenderTwiML(reply, c.Request.URL.Path)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

// HandleStatus consumes call status callbacks.
func (h TwilioWebhookHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, companyID, ok := h.parse(c)
	if !ok {
		return
	}

	if err := h.Voice.HandleStatus(c.Request.Context(), form.ToCallStatusRequest(companyID, h.now())); err != nil {
		log.Error("call status handling failed", "company_id", companyID, "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ParseNumberCompanies parses "+15550001111=co_1,+15550002222=co_2".
func ParseNumberCompanies(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		number, company, ok := strings.Cut(part, "=")
		number, company = strings.TrimSpace(number), strings.TrimSpace(company)
		if !ok || number == "" || company == "" {
			return nil, fmt.Errorf("telephony: invalid number mapping %q", part)
		}
		out[number] = company
	}
	return out, nil
}

// NumberResolver maps a dialed number to its company, falling back to defaultCompanyID.
func NumberResolver(numbers map[string]string, defaultCompanyID string) func(c *gin.Context, toNumber string) (string, error) {
	return func(_ *gin.Context, toNumber string) (string, error) {
		if id, ok := numbers[normalizePhone(toNumber)]; ok {
			return id, nil
		}
		if defaultCompanyID != "" {
			return defaultCompanyID, nil
		}
		return "", ErrUnknownNumber
	}
}

package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// Only the verbs the voice agent uses are modeled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name  `xml:"Gather"`
	Input         string    `xml:"input,attr"`
	Action        string    `xml:"action,attr"`
	Method        string    `xml:"method,attr"`
	SpeechTimeout string    `xml:"speechTimeout,attr"`
	NumDigits     int       `xml:"numDigits,attr"`
	Say           *twimlSay `xml:"Say,omitempty"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlDial struct {
	XMLName xml.Name  `xml:"Dial"`
	Number  string    `xml:"Number,omitempty"`
	Sip     *twimlSip `xml:"Sip,omitempty"`
}

type twimlSip struct {
	URI string `xml:",chardata"`
}

// RenderTwiML maps a VoiceReply to TwiML. action is the URL Twilio posts gathered
// input to; a silent caller is redirected there too, so no input counts as a turn.
func RenderTwiML(reply VoiceReply, action string) (string, error) {
	var r twimlResponse
	say := strings.TrimSpace(reply.Say)

	switch {
	case reply.Gather:
		if action == "" {
			return "", errors.New("telephony: gather requires an action url")
		}
		g := twimlGather{Input: "speech dtmf", Action: action, Method: "POST", SpeechTimeout: "auto", NumDigits: 1}
		if say != "" {
			g.Say = &twimlSay{Text: say}
		}
		r.Verbs = append(r.Verbs, g, twimlRedirect{Method: "POST", URL: action})
	case reply.Dial != "":
		if say != "" {
			r.Verbs = append(r.Verbs, twimlSay{Text: say})
		}
		d := twimlDial{}
		// Prefer SIP if it looks like sip:... otherwise treat as a PSTN number.
		if strings.HasPrefix(strings.ToLower(reply.Dial), "sip:") {
			d.Sip = &twimlSip{URI: reply.Dial}
		} else {
			d.Number = reply.Dial
		}
		r.Verbs = append(r.Verbs, d)
	default:
		if say != "" {
			r.Verbs = append(r.Verbs, twimlSay{Text: say})
		}
		r.Verbs = append(r.Verbs, twimlHangup{})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

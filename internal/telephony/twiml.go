package telephony

import (
	"bytes"
	"encoding/xml"
)

// Minimal TwiML response builder for the voice webhook replies. It
// intentionally avoids any provider SDK dependency; only the verbs used at
// this boundary are modeled.

// GatherAction is the webhook the provider posts recognized speech back to.
const GatherAction = "/telephony/gather"

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// SpeakAndGather renders a document that speaks text and then keeps
// listening for the caller's next utterance.
func SpeakAndGather(text string) (string, error) {
	return render(twimlResponse{Verbs: []any{
		twimlSay{Text: text},
		twimlGather{
			Input:         "speech",
			Action:        GatherAction,
			Method:        "POST",
			SpeechTimeout: "auto",
		},
	}})
}

// SpeakAndHangup renders a document that speaks text and ends the call.
func SpeakAndHangup(text string) (string, error) {
	return render(twimlResponse{Verbs: []any{
		twimlSay{Text: text},
		twimlHangup{},
	}})
}

func render(r twimlResponse) (string, error) {
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

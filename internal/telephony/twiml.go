package telephony

import (
	"encoding/xml"
	"fmt"
)

// voiceResponse is the call-setup markup returned to the telephony provider
// when a call comes in: speak a greeting, then open the duplex media stream
// back to this process.
type voiceResponse struct {
	XMLName xml.Name `xml:"Response"`
	Say     *sayVerb `xml:"Say,omitempty"`
	Connect struct {
		Stream streamNoun `xml:"Stream"`
	} `xml:"Connect"`
}

type sayVerb struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type streamNoun struct {
	URL string `xml:"url,attr"`
}

// CallSetupDocument renders the markup instructing the provider to greet the
// caller and connect the call's audio to streamURL (a wss:// address).
// greeting may be empty to skip the spoken intro.
func CallSetupDocument(streamURL, greeting string) ([]byte, error) {
	if streamURL == "" {
		return nil, fmt.Errorf("telephony: streamURL must not be empty")
	}

	var resp voiceResponse
	if greeting != "" {
		resp.Say = &sayVerb{Text: greeting}
	}
	resp.Connect.Stream.URL = streamURL

	body, err := xml.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("telephony: render call setup: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

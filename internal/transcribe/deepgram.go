// Package transcribe converts complete answer recordings to text through
// Deepgram's prerecorded transcription API.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	restapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

type prerecordedAPI interface {
	FromStream(ctx context.Context, source io.Reader, options *interfaces.PreRecordedTranscriptionOptions) (*restapi.PreRecordedResponse, error)
}

type Deepgram struct {
	api     prerecordedAPI
	options *interfaces.PreRecordedTranscriptionOptions
}

// NewDeepgram builds a transcriber against the Deepgram REST API.
func NewDeepgram(apiKey string) *Deepgram {
	c := listen.NewREST(apiKey, &interfaces.ClientOptions{})
	return &Deepgram{
		api: listenapi.New(c),
		options: &interfaces.PreRecordedTranscriptionOptions{
			Model:       "nova-2",
			Language:    "en",
			Punctuate:   true,
			SmartFormat: true,
		},
	}
}

func (d *Deepgram) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := d.api.FromStream(ctx, bytes.NewReader(audio), d.options)
	if err != nil {
		return "", fmt.Errorf("deepgram transcription: %w", err)
	}
	return bestTranscript(resp)
}

// bestTranscript picks the first alternative of the first channel, which
// Deepgram orders by confidence.
func bestTranscript(resp *restapi.PreRecordedResponse) (string, error) {
	if resp == nil || len(resp.Results.Channels) == 0 {
		return "", fmt.Errorf("deepgram: no channels in response")
	}
	alternatives := resp.Results.Channels[0].Alternatives
	if len(alternatives) == 0 {
		return "", fmt.Errorf("deepgram: no alternatives in response")
	}
	return strings.TrimSpace(alternatives[0].Transcript), nil
}

// Package narrate synthesizes question text into spoken audio with the
// OpenAI text-to-speech API.
package narrate

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ArtifactWriter persists synthesized audio and returns a filename reference.
type ArtifactWriter interface {
	SaveNarration(data []byte) (string, error)
}

type speechAPI interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

type OpenAI struct {
	api   speechAPI
	files ArtifactWriter
	model openai.SpeechModel
	voice openai.SpeechVoice
}

func NewOpenAI(apiKey, model, voice string, files ArtifactWriter) *OpenAI {
	if strings.TrimSpace(model) == "" {
		model = string(openai.TTSModel1)
	}
	if strings.TrimSpace(voice) == "" {
		voice = string(openai.VoiceNova)
	}

	return &OpenAI{
		api:   openai.NewClient(apiKey),
		files: files,
		model: openai.SpeechModel(model),
		voice: openai.SpeechVoice(voice),
	}
}

// Synthesize renders text to mp3 and stores it, returning the filename
// reference the client fetches through the audio route.
func (n *OpenAI) Synthesize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("narrate: empty text")
	}

	resp, err := n.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          n.model,
		Input:          text,
		Voice:          n.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return "", fmt.Errorf("openai speech synthesis: %w", err)
	}
	defer func() { _ = resp.Close() }()

	data, err := io.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("read synthesized audio: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("openai speech synthesis: empty audio stream")
	}

	name, err := n.files.SaveNarration(data)
	if err != nil {
		return "", fmt.Errorf("store narration: %w", err)
	}
	return name, nil
}

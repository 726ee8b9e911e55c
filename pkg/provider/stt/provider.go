// Package stt defines the Provider interface for remote Speech-to-Text
// backends used by the assessment pipeline.
//
// A provider wraps a batch transcription service (a whisper.cpp server, the
// OpenAI audio API, ...) and exposes a uniform request/response contract: one
// recorded utterance in, one transcript out. Responses come in two shapes,
// a flat text field or an ordered list of segments; [Result.BestText]
// collapses both into a single string.
//
// Providers report every failure (network error, non-success status,
// malformed body) as an error. They never retry; degradation is the caller's
// responsibility.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyAudio is returned when a request carries no audio bytes.
var ErrEmptyAudio = errors.New("stt: no audio provided")

// Request is a single transcription call.
type Request struct {
	// Audio is the encoded recording.
	Audio []byte

	// Format names the encoding of Audio (e.g. "wav", "webm", "pcm16").
	// Providers use it for the upload filename and content type. Empty means
	// "wav".
	Format string

	// Language is the BCP-47 language hint (e.g. "en", "fr-FR"). Empty lets the
	// provider auto-detect.
	Language string

	// Model overrides the provider's configured model when non-empty.
	Model string
}

// Segment is one time-aligned piece of a transcript.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start,omitempty"`
	End   float64 `json:"end,omitempty"`
}

// Result is a provider response in either of its two shapes.
type Result struct {
	// Text is the flat transcript, when the provider returns one.
	Text string `json:"text"`

	// Segments are returned by providers that split the utterance.
	Segments []Segment `json:"segments,omitempty"`

	// Language is the detected or requested language, if reported.
	Language string `json:"language,omitempty"`
}

// BestText returns the flat text when it is non-blank, otherwise the segment
// texts joined with single spaces in their original order.
func (r Result) BestText() string {
	if t := strings.TrimSpace(r.Text); t != "" {
		return t
	}
	parts := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Provider is the abstraction over any remote STT backend.
type Provider interface {
	// Transcribe sends one recording for recognition and returns the result.
	// It returns an error for any transport, status, or decoding failure.
	Transcribe(ctx context.Context, req Request) (Result, error)
}

// FileName returns an upload filename and MIME type for format.
func FileName(format string) (name, contentType string) {
	switch strings.ToLower(format) {
	case "", "wav", "pcm16":
		return "audio.wav", "audio/wav"
	case "mp3", "mpeg":
		return "audio.mp3", "audio/mpeg"
	case "ogg", "opus":
		return "audio.ogg", "audio/ogg"
	case "webm":
		return "audio.webm", "audio/webm"
	case "m4a", "mp4":
		return "audio.m4a", "audio/mp4"
	case "flac":
		return "audio.flac", "audio/flac"
	default:
		return "audio." + strings.ToLower(format), "application/octet-stream"
	}
}

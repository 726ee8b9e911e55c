package main

import (
	"github.com/MrWong99/diction/internal/config"
	"github.com/MrWong99/diction/pkg/provider/stt"
	"github.com/MrWong99/diction/pkg/provider/stt/deepgram"
	"github.com/MrWong99/diction/pkg/provider/stt/openai"
	"github.com/MrWong99/diction/pkg/provider/stt/whisper"
)

// registerBuiltinProviders wires the remote STT providers that ship with
// Diction into reg.
//
// Provider options:
//
//	whisper:  language (string), sample_rate (int)
//	deepgram: language (string), utterances (bool)
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("whisper", func(e config.ProviderEntry, tc config.TranscriptionConfig) (stt.Provider, error) {
		var opts []whisper.Option
		if e.Model != "" {
			opts = append(opts, whisper.WithModel(e.Model))
		}
		if lang := e.OptionString("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if rate, ok := e.Options["sample_rate"].(int); ok && rate > 0 {
			opts = append(opts, whisper.WithSampleRate(rate))
		}
		if tc.Timeout > 0 {
			opts = append(opts, whisper.WithTimeout(tc.Timeout))
		}
		return whisper.New(e.BaseURL, opts...)
	})

	reg.RegisterSTT("openai", func(e config.ProviderEntry, tc config.TranscriptionConfig) (stt.Provider, error) {
		var opts []openai.Option
		if e.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(e.BaseURL))
		}
		if e.Model != "" {
			opts = append(opts, openai.WithModel(e.Model))
		}
		if tc.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(tc.Timeout))
		}
		return openai.New(e.APIKey, opts...)
	})

	reg.RegisterSTT("deepgram", func(e config.ProviderEntry, tc config.TranscriptionConfig) (stt.Provider, error) {
		var opts []deepgram.Option
		if e.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(e.BaseURL))
		}
		if e.Model != "" {
			opts = append(opts, deepgram.WithModel(e.Model))
		}
		if lang := e.OptionString("language", ""); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		opts = append(opts, deepgram.WithUtterances(e.OptionBool("utterances", false)))
		if tc.Timeout > 0 {
			opts = append(opts, deepgram.WithTimeout(tc.Timeout))
		}
		return deepgram.New(e.APIKey, opts...)
	})
}

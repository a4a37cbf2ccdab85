package main

import (
	"fmt"
	"os"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Tokenizer is an interface for different tokenizer implementations.
type Tokenizer interface {
	CountTokens(text string) int
	Close() // resource cleanup hook for implementations that need one
}

// Supported tokenizer kinds. TokenizerNone disables counting entirely.
const (
	TokenizerNone        = "none"
	TokenizerTiktoken    = "tiktoken"
	TokenizerHuggingFace = "huggingface"
)

const defaultTiktokenModel = "gpt-4o" // Default if tokenizer is tiktoken
const defaultHFModel = "gpt2"         // Default if tokenizer is huggingface and no model specified

// --- Tiktoken Wrapper ---

type TiktokenWrapper struct {
	ttk *tiktoken.Tiktoken
}

func (w *TiktokenWrapper) CountTokens(text string) int {
	if w.ttk == nil {
		return 0
	}
	tokens := w.ttk.EncodeOrdinary(text)
	return len(tokens)
}

func (w *TiktokenWrapper) Close() {
	// No explicit close needed for tiktoken-go
}

// --- HuggingFace (sugarme) Wrapper ---

type HFTokenizerWrapper struct {
	htk *hf.Tokenizer
}

func (w *HFTokenizerWrapper) CountTokens(text string) int {
	if w.htk == nil {
		return 0
	}
	en, err := w.htk.EncodeSingle(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: HF tokenizer failed to encode text: %v\n", err)
		return 0
	}
	return len(en.Tokens)
}

func (w *HFTokenizerWrapper) Close() {
	// sugarme/tokenizer has no explicit Close/Free method
}

// --- Tokenizer Loading Logic ---

// newTokenizer builds a tokenizer for the given kind. A nil Tokenizer with a
// nil error means counting is disabled.
func newTokenizer(kind, model, file string) (Tokenizer, error) {
	switch strings.ToLower(kind) {
	case TokenizerNone, "":
		return nil, nil
	case TokenizerTiktoken:
		return loadTiktoken(model)
	case TokenizerHuggingFace:
		return loadHuggingFace(model, file)
	default:
		return nil, fmt.Errorf("unsupported tokenizer type: %s. Use 'none', 'tiktoken' or 'huggingface'", kind)
	}
}

func loadTiktoken(model string) (Tokenizer, error) {
	if model == "" {
		model = defaultTiktokenModel
	}

	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Tiktoken model '%s' not found, falling back to default '%s'. Error: %v\n", model, defaultTiktokenModel, err)
		tke, err = tiktoken.EncodingForModel(defaultTiktokenModel)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding for default model '%s': %w", defaultTiktokenModel, err)
		}
	}
	return &TiktokenWrapper{ttk: tke}, nil
}

func loadHuggingFace(model, file string) (Tokenizer, error) {
	if file != "" {
		// Load from local file
		ttk, err := pretrained.FromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer from file %s: %w", file, err)
		}
		return &HFTokenizerWrapper{htk: ttk}, nil
	}

	// Load from Hugging Face Hub. CachedPath downloads tokenizer.json on
	// first use and reuses the cache afterwards.
	if model == "" {
		model = defaultHFModel
	}

	configFilePath, err := hf.CachedPath(model, "tokenizer.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache path for model %s: %w", model, err)
	}

	ttk, err := pretrained.FromFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pretrained tokenizer for model %s (from %s): %w", model, configFilePath, err)
	}
	return &HFTokenizerWrapper{htk: ttk}, nil
}

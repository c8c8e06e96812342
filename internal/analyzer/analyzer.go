package analyzer

import "context"

type Options struct {
	IncludeKeywords    bool   `json:"include_keywords"`
	IncludeReadability bool   `json:"include_readability"`
	IncludeSEO         bool   `json:"include_seo"`
	KeywordFocus       string `json:"keyword_focus,omitempty"`
}

type Request struct {
	Content string  `json:"content"`
	Title   string  `json:"title,omitempty"`
	Options Options `json:"options"`
}

type Readability struct {
	Score       float64 `json:"score"`
	Grade       string  `json:"grade"`
	Description string  `json:"description,omitempty"`
}

type SEO struct {
	Score        float64  `json:"score"`
	Keywords     []string `json:"keywords,omitempty"`
	Issues       []string `json:"issues,omitempty"`
	KeywordFocus string   `json:"keyword_focus,omitempty"`
}

// Result is the structured outcome of one analysis, plus the token count
// the usage recorder needs. The analyzer itself is an opaque remote
// service; nothing here depends on how it computes these fields.
type Result struct {
	ID               string       `json:"id"`
	WordCount        int          `json:"word_count"`
	CharacterCount   int          `json:"character_count"`
	Readability      *Readability `json:"readability,omitempty"`
	SEO              *SEO         `json:"seo,omitempty"`
	Suggestions      []string     `json:"suggestions,omitempty"`
	TokensUsed       int          `json:"tokens_used"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
}

type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

package dto

type AnalyzeOptions struct {
	IncludeKeywords    *bool  `json:"include_keywords,omitempty"`
	IncludeReadability *bool  `json:"include_readability,omitempty"`
	IncludeSEO         *bool  `json:"include_seo,omitempty"`
	KeywordFocus       string `json:"keyword_focus,omitempty"`
}

type AnalyzeRequest struct {
	Content string          `json:"content" binding:"required,min=100,max=50000"`
	Title   string          `json:"title" binding:"omitempty,max=500"`
	Options *AnalyzeOptions `json:"options" binding:"omitempty"`
}

type BatchAnalyzeRequest struct {
	Items []AnalyzeRequest `json:"items" binding:"required,min=1,max=10,dive"`
}

type BatchAnalyzeItemResult struct {
	Index  int         `json:"index"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

type BatchAnalyzeResponse struct {
	Results []BatchAnalyzeItemResult `json:"results"`
}

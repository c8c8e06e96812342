package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/analyzer"
	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/ierr"
)

// AnalysisCache keeps finished results keyed by content hash.
type AnalysisCache interface {
	Get(ctx context.Context, contentHash string) ([]byte, error)
	Set(ctx context.Context, contentHash string, payload []byte) error
}

type AnalysisService struct {
	analyzer analyzer.Analyzer
	cache    AnalysisCache
	logger   *zap.Logger
}

func NewAnalysisService(a analyzer.Analyzer, cache AnalysisCache, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		analyzer: a,
		cache:    cache,
		logger:   logger.Named("AnalysisService"),
	}
}

// CheckQuota enforces the business-level monthly allowance for the key's
// tier. This is deliberately separate from rate limiting: it compares the
// monthly display aggregate against the tier allowance and surfaces as
// HTTP 402, never 429.
func (s *AnalysisService) CheckQuota(key *apikey.APIKey) error {
	allowance := apikey.MonthlyAllowanceForTier(key.Tier)
	if allowance < 0 {
		return nil
	}
	if key.MonthlyUsage >= allowance {
		s.logger.Warn("Monthly quota exhausted",
			zap.String("key_id", key.ID.String()),
			zap.String("tier", string(key.Tier)),
			zap.Int64("monthly_usage", key.MonthlyUsage),
		)
		return ierr.ErrQuotaExceeded
	}
	return nil
}

// Analyze returns the analysis for the content, serving identical documents
// from the cache. The second return value reports whether the result was a
// cache hit.
func (s *AnalysisService) Analyze(ctx context.Context, req *dto.AnalyzeRequest) (*analyzer.Result, bool, error) {
	contentHash := hashContent(req.Content)

	if payload, err := s.cache.Get(ctx, contentHash); err != nil {
		s.logger.Warn("Analysis cache lookup failed", zap.Error(err))
	} else if payload != nil {
		var cached analyzer.Result
		if err := json.Unmarshal(payload, &cached); err == nil {
			s.logger.Debug("Analysis served from cache", zap.String("content_hash", contentHash))
			return &cached, true, nil
		}
		s.logger.Warn("Dropping undecodable cached analysis", zap.String("content_hash", contentHash))
	}

	result, err := s.analyzer.Analyze(ctx, analyzer.Request{
		Content: req.Content,
		Title:   req.Title,
		Options: buildOptions(req.Options),
	})
	if err != nil {
		s.logger.Error("Analyzer call failed", zap.Error(err))
		return nil, false, fmt.Errorf("%w: analysis failed", ierr.ErrInternalServer)
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, contentHash, payload); err != nil {
			s.logger.Warn("Failed to cache analysis result", zap.Error(err))
		}
	}

	return result, false, nil
}

func buildOptions(opts *dto.AnalyzeOptions) analyzer.Options {
	// All sections are on unless the caller switches them off.
	out := analyzer.Options{
		IncludeKeywords:    true,
		IncludeReadability: true,
		IncludeSEO:         true,
	}
	if opts == nil {
		return out
	}
	if opts.IncludeKeywords != nil {
		out.IncludeKeywords = *opts.IncludeKeywords
	}
	if opts.IncludeReadability != nil {
		out.IncludeReadability = *opts.IncludeReadability
	}
	if opts.IncludeSEO != nil {
		out.IncludeSEO = *opts.IncludeSEO
	}
	out.KeywordFocus = opts.KeywordFocus
	return out
}

func hashContent(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

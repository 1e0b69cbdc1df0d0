package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

// systemPrompt pins the oracle to the preference JSON contract.
const systemPrompt = `You convert a guardian's free-text scheduling request into JSON.
Respond with a single JSON object and nothing else, using exactly these fields:
{
  "daysOfWeek": [0-6 integers, 0 = Sunday; empty array when no day restriction],
  "timeRanges": [{"start": "HH:MM", "end": "HH:MM", "timezone": "IANA zone"}],
  "dateConstraints": {"startDate": "YYYY-MM-DD", "endDate": "YYYY-MM-DD", "relative": "verbatim phrase"} or null,
  "specificDates": ["YYYY-MM-DD"],
  "recurringPattern": "weekdays" | "weekends" | "daily" | "none"
}
Resolve relative phrases like "next two weeks" into startDate/endDate and echo
the phrase in "relative". Use an empty array for any unconstrained field.`

type oracleClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error)
}

// ExtractionCache abstracts persistence for cached extractions.
type ExtractionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ExtractionService turns free text into a validated PreferenceModel via the
// oracle, with a bounded cache in front of it.
type ExtractionService struct {
	oracle       oracleClient
	cache        ExtractionCache
	cacheTTL     time.Duration
	cacheEnabled bool
	validator    *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger
}

// ExtractionServiceConfig tunes caching behaviour.
type ExtractionServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewExtractionService constructs the service.
func NewExtractionService(oracle oracleClient, cache ExtractionCache, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg ExtractionServiceConfig) *ExtractionService {
	if validate == nil {
		validate = validator.New()
		RegisterCustomValidators(validate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &ExtractionService{
		oracle:       oracle,
		cache:        cache,
		cacheTTL:     cfg.CacheTTL,
		cacheEnabled: cfg.CacheEnabled,
		validator:    validate,
		metrics:      metrics,
		logger:       logger,
	}
}

// Extract returns the validated preference for the given free text and
// whether it was served from cache.
func (s *ExtractionService) Extract(ctx context.Context, text string) (*models.PreferenceModel, bool, error) {
	key := cacheKey(text)

	if s.cacheEnabled && s.cache != nil {
		var cached models.PreferenceModel
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, true, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("extraction cache get failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	start := time.Now()
	raw, err := s.oracle.CompleteJSON(ctx, systemPrompt, text)
	if err != nil {
		s.metrics.ObserveOracleCall("error", time.Since(start))
		return nil, false, appErrors.Wrap(err, appErrors.ErrOracle.Code, appErrors.ErrOracle.Status, "oracle completion failed")
	}
	s.metrics.ObserveOracleCall("ok", time.Since(start))

	var pref models.PreferenceModel
	if err := json.Unmarshal(raw, &pref); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrOracle.Code, appErrors.ErrOracle.Status, "oracle returned malformed JSON")
	}
	if err := s.ValidatePreference(&pref); err != nil {
		return nil, false, err
	}

	if s.cacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, pref, s.cacheTTL); err != nil {
			s.logger.Warn("extraction cache set failed", zap.Error(err))
		}
	}

	return &pref, false, nil
}

// ValidatePreference applies the schema rules to an already-decoded
// structure. Failures carry field-level messages.
func (s *ExtractionService) ValidatePreference(pref *models.PreferenceModel) error {
	if pref.RecurringPattern == "" {
		pref.RecurringPattern = models.PatternNone
	}
	if err := s.validator.Struct(pref); err != nil {
		messages := ValidationMessages(err)
		return appErrors.Clone(appErrors.ErrValidation, strings.Join(messages, "; "))
	}
	return nil
}

// cacheKey hashes the normalized text so equivalent requests share an entry.
func cacheKey(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return "extraction:" + hex.EncodeToString(sum[:])
}

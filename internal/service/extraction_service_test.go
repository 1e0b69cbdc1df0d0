package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

type oracleStub struct {
	payload string
	err     error
	calls   int
}

func (s *oracleStub) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.payload), nil
}

type cacheStub struct {
	entries map[string][]byte
	sets    int
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string][]byte)}
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	pref, ok := dest.(*models.PreferenceModel)
	if !ok {
		return errors.New("unexpected destination type")
	}
	*pref = models.PreferenceModel{RecurringPattern: models.RecurringPattern(raw)}
	return nil
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.sets++
	s.entries[key] = []byte("none")
	return nil
}

const validOraclePayload = `{
	"daysOfWeek": [1, 3],
	"timeRanges": [{"start": "09:00", "end": "12:00", "timezone": "America/Los_Angeles"}],
	"dateConstraints": {"startDate": "2026-03-02", "endDate": "2026-03-16", "relative": "next two weeks"},
	"specificDates": [],
	"recurringPattern": "none"
}`

func TestExtractReturnsValidatedPreference(t *testing.T) {
	oracle := &oracleStub{payload: validOraclePayload}
	svc := NewExtractionService(oracle, nil, nil, nil, nil, ExtractionServiceConfig{})

	pref, cached, err := svc.Extract(context.Background(), "mornings on Monday or Wednesday, next two weeks")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []int{1, 3}, pref.DaysOfWeek)
	require.Len(t, pref.TimeRanges, 1)
	assert.Equal(t, "09:00", pref.TimeRanges[0].Start)
	assert.Equal(t, models.PatternNone, pref.RecurringPattern)
}

func TestExtractServesFromCache(t *testing.T) {
	oracle := &oracleStub{payload: validOraclePayload}
	cache := newCacheStub()
	svc := NewExtractionService(oracle, cache, nil, nil, nil, ExtractionServiceConfig{CacheEnabled: true})

	_, cached, err := svc.Extract(context.Background(), "any weekday works")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, 1, cache.sets)

	_, cached, err = svc.Extract(context.Background(), "any weekday works")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, oracle.calls)
}

func TestExtractNormalizesTextForCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("Monday  Mornings"), cacheKey("monday mornings"))
	assert.NotEqual(t, cacheKey("monday mornings"), cacheKey("tuesday mornings"))
}

func TestExtractOracleFailure(t *testing.T) {
	oracle := &oracleStub{err: errors.New("boom")}
	svc := NewExtractionService(oracle, nil, nil, nil, nil, ExtractionServiceConfig{})

	_, _, err := svc.Extract(context.Background(), "whenever")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOracle.Code, appErrors.FromError(err).Code)
}

func TestExtractMalformedOracleJSON(t *testing.T) {
	oracle := &oracleStub{payload: `{"daysOfWeek": [`}
	svc := NewExtractionService(oracle, nil, nil, nil, nil, ExtractionServiceConfig{})

	_, _, err := svc.Extract(context.Background(), "whenever")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOracle.Code, appErrors.FromError(err).Code)
}

func TestExtractRejectsInvalidStructure(t *testing.T) {
	oracle := &oracleStub{payload: `{
		"daysOfWeek": [9],
		"timeRanges": [],
		"specificDates": [],
		"recurringPattern": "none"
	}`}
	svc := NewExtractionService(oracle, nil, nil, nil, nil, ExtractionServiceConfig{})

	_, _, err := svc.Extract(context.Background(), "whenever")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidatePreferenceDefaultsPattern(t *testing.T) {
	svc := NewExtractionService(&oracleStub{}, nil, nil, nil, nil, ExtractionServiceConfig{})
	pref := &models.PreferenceModel{}
	require.NoError(t, svc.ValidatePreference(pref))
	assert.Equal(t, models.PatternNone, pref.RecurringPattern)
}

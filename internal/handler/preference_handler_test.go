package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-api/internal/dto"
	"github.com/brightline-health/intake-api/internal/models"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
)

type extractionServiceStub struct {
	pref    *models.PreferenceModel
	cached  bool
	err     error
	gotText string
}

func (s *extractionServiceStub) Extract(ctx context.Context, text string) (*models.PreferenceModel, bool, error) {
	s.gotText = text
	return s.pref, s.cached, s.err
}

func TestExtractHandlerSuccess(t *testing.T) {
	stub := &extractionServiceStub{
		pref: &models.PreferenceModel{
			DaysOfWeek:       []int{1, 3},
			RecurringPattern: models.PatternWeekdays,
		},
		cached: true,
	}
	recorder := performJSON(t, NewPreferenceHandler(stub).Extract, "/intake/preferences",
		dto.ExtractRequest{Text: "mornings on Monday or Wednesday"})

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "mornings on Monday or Wednesday", stub.gotText)

	var envelope struct {
		Data dto.ExtractResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Cached)
	assert.Equal(t, []int{1, 3}, envelope.Data.Preference.DaysOfWeek)
}

func TestExtractHandlerEmptyText(t *testing.T) {
	recorder := performJSON(t, NewPreferenceHandler(&extractionServiceStub{}).Extract,
		"/intake/preferences", dto.ExtractRequest{})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), appErrors.ErrValidation.Code)
}

func TestExtractHandlerOracleFailure(t *testing.T) {
	stub := &extractionServiceStub{err: appErrors.ErrOracle}
	recorder := performJSON(t, NewPreferenceHandler(stub).Extract, "/intake/preferences",
		dto.ExtractRequest{Text: "any weekday afternoon"})

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Contains(t, recorder.Body.String(), appErrors.ErrOracle.Code)
}

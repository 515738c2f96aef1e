package localization

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/simba/internal/config"
)

func newLocalizer(t *testing.T) *Localizer {
	t.Helper()
	l := NewLocalizer(config.I18nConfig{DefaultLanguage: "pt", FallbackLanguage: "pt"}, nil)
	_, err := l.Init(context.Background())
	require.NoError(t, err)
	return l
}

func TestTranslateNestedKeys(t *testing.T) {
	l := newLocalizer(t)

	assert.Equal(t, "Pico Sazonal", l.T("pt", "insights.seasonal.title", nil))
	assert.Equal(t, "Mostrando 12 ocorrências", l.T("pt", "app.showingRecords", map[string]any{"count": 12}))
}

func TestTranslateFallsBackToDefaultThenKey(t *testing.T) {
	l := newLocalizer(t)

	// en was never loaded, so lookups resolve through the fallback pack.
	assert.Equal(t, "Pico Sazonal", l.T("en", "insights.seasonal.title", nil))
	assert.Equal(t, "does.not.exist", l.T("pt", "does.not.exist", nil))
	// Non-leaf keys are not translations.
	assert.Equal(t, "insights.peak", l.T("pt", "insights.peak", nil))
}

func TestSetLanguageLoadsOnDemand(t *testing.T) {
	l := newLocalizer(t)

	state, err := l.SetLanguage(context.Background(), "en-US")
	require.NoError(t, err)
	assert.Equal(t, "en", state.Language)
	assert.Equal(t, "en", state.Locale)
	assert.Equal(t, "PT", state.Toggle)
	assert.Equal(t, "Seasonal Peak", l.T("en", "insights.seasonal.title", nil))
	assert.Equal(t, []string{"en", "pt"}, l.AvailableLanguages())

	_, err = l.SetLanguage(context.Background(), "fr")
	assert.Error(t, err)
}

func TestInterpolateLeavesUnknownTokens(t *testing.T) {
	assert.Equal(t, "de 2023 para {to}", Interpolate("de {from} para {to}", map[string]any{"from": 2023}))
	assert.Equal(t, "plain", Interpolate("plain", map[string]any{"x": 1}))
}

func TestFormatting(t *testing.T) {
	l := newLocalizer(t)
	_, err := l.SetLanguage(context.Background(), "en")
	require.NoError(t, err)

	assert.Equal(t, "12.345", l.FormatNumber("pt", 12345))
	assert.Equal(t, "12,345", l.FormatNumber("en", 12345))

	d := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "05/03/2024", l.FormatDate("pt", d))
	assert.Equal(t, "3/5/2024", l.FormatDate("en", d))
	assert.Equal(t, "Unknown", l.FormatDate("en", time.Time{}))
}

func TestFlatten(t *testing.T) {
	l := newLocalizer(t)
	flat, err := l.Flatten(context.Background(), "pt")
	require.NoError(t, err)
	assert.Equal(t, "Março", flat["months.march"])
	assert.Equal(t, "Pico Sazonal", flat["insights.seasonal.title"])
}

func TestRemotePackOverridesEmbedded(t *testing.T) {
	l := NewLocalizer(config.I18nConfig{DefaultLanguage: "en", FallbackLanguage: "pt", RemoteBaseURL: "http://site.test/"}, nil)
	require.NotNil(t, l.Client())
	httpmock.ActivateNonDefault(l.Client().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, "http://site.test/assets/i18n/en.json",
		httpmock.NewStringResponder(http.StatusOK, `{"insights": {"seasonal": {"title": "Busiest Month"}}}`))
	httpmock.RegisterResponder(http.MethodGet, "http://site.test/assets/i18n/pt.json",
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	state, err := l.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "en", state.Language)

	assert.Equal(t, "Busiest Month", l.T("en", "insights.seasonal.title", nil))
	// Missing in the remote en pack, resolved from the embedded pt fallback.
	assert.Equal(t, "Espécie Mais Comum", l.T("en", "insights.species.title", nil))
}

func TestBound(t *testing.T) {
	l := newLocalizer(t)
	b := l.Bind("PT")
	assert.Equal(t, "pt", b.Language())
	assert.Equal(t, "Janeiro", b.T("months.january", nil))
}

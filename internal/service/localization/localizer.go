// Package localization resolves translated UI text from nested language packs.
package localization

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mamadbah2/simba/internal/config"
)

//go:embed locales/*.json
var embedded embed.FS

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Pack is one language's nested translation tree.
type Pack map[string]any

// State is the published result of a language change. Callers re-render from it.
type State struct {
	Language    string `json:"language"`
	Locale      string `json:"locale"`
	Toggle      string `json:"toggle"`
	ToggleTitle string `json:"toggleTitle"`
}

// Localizer loads language packs on demand and caches them for the process lifetime.
type Localizer struct {
	packs      *cache.Cache
	fallback   string
	defaultLng string
	remote     *resty.Client
	logger     *zap.Logger
}

// NewLocalizer builds a localizer. Remote packs are used only when
// cfg.RemoteBaseURL is set; embedded packs are always available.
func NewLocalizer(cfg config.I18nConfig, logger *zap.Logger) *Localizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Localizer{
		packs:      cache.New(cache.NoExpiration, 0),
		fallback:   cfg.FallbackLanguage,
		defaultLng: cfg.DefaultLanguage,
		logger:     logger,
	}
	if l.fallback == "" {
		l.fallback = "pt"
	}
	if l.defaultLng == "" {
		l.defaultLng = l.fallback
	}

	if cfg.RemoteBaseURL != "" {
		l.remote = resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.RemoteBaseURL, "/")).
			SetTimeout(10 * time.Second)
	}
	return l
}

// Client exposes the remote pack client, nil when remote packs are disabled.
func (l *Localizer) Client() *resty.Client {
	return l.remote
}

// DefaultLanguage is the language new sessions start with.
func (l *Localizer) DefaultLanguage() string {
	return l.defaultLng
}

// Init loads the default and fallback packs.
func (l *Localizer) Init(ctx context.Context) (State, error) {
	if _, err := l.load(ctx, l.fallback); err != nil {
		l.logger.Error("fallback language pack unavailable", zap.String("language", l.fallback), zap.Error(err))
	}
	return l.SetLanguage(ctx, l.defaultLng)
}

// SetLanguage makes sure lang is loaded and returns the state to publish.
func (l *Localizer) SetLanguage(ctx context.Context, lang string) (State, error) {
	lang = normalize(lang)
	if _, err := l.load(ctx, lang); err != nil {
		return State{}, err
	}
	l.logger.Debug("language selected", zap.String("language", lang))
	return State{
		Language:    lang,
		Locale:      Locale(lang),
		Toggle:      l.T(lang, "navigation.languageToggle", nil),
		ToggleTitle: l.T(lang, "navigation.languageToggleTitle", nil),
	}, nil
}

// Reload drops a cached pack so the next lookup re-reads it.
func (l *Localizer) Reload(ctx context.Context, lang string) error {
	lang = normalize(lang)
	l.packs.Delete(lang)
	_, err := l.load(ctx, lang)
	return err
}

// T translates key in lang, then in the fallback language, then returns the
// key itself. {name} placeholders are replaced from params.
func (l *Localizer) T(lang, key string, params map[string]any) string {
	text, ok := l.Lookup(normalize(lang), key)
	if !ok {
		text, ok = l.Lookup(l.fallback, key)
	}
	if !ok {
		text = key
	}
	return Interpolate(text, params)
}

// Lookup resolves a dot-delimited key to a leaf string in an already loaded pack.
func (l *Localizer) Lookup(lang, key string) (string, bool) {
	pack, ok := l.cached(lang)
	if !ok {
		return "", false
	}

	var node any = map[string]any(pack)
	for _, part := range strings.Split(key, ".") {
		branch, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		if node, ok = branch[part]; !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	return s, ok
}

// Bind returns a Translator fixed to lang.
func (l *Localizer) Bind(lang string) Bound {
	return Bound{l: l, lang: normalize(lang)}
}

// AvailableLanguages lists the loaded languages.
func (l *Localizer) AvailableLanguages() []string {
	items := l.packs.Items()
	out := make([]string, 0, len(items))
	for lang := range items {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Flatten returns every leaf of a loaded pack keyed by its dotted path.
func (l *Localizer) Flatten(ctx context.Context, lang string) (map[string]string, error) {
	pack, err := l.load(ctx, normalize(lang))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", pack, out)
	return out, nil
}

// FormatNumber groups digits the way the language's locale does.
func (l *Localizer) FormatNumber(lang string, n int) string {
	return message.NewPrinter(language.Make(Locale(normalize(lang)))).Sprintf("%d", n)
}

// FormatDate renders a calendar date; the zero time renders as "unknown".
func (l *Localizer) FormatDate(lang string, t time.Time) string {
	if t.IsZero() {
		return l.T(lang, "species.unknown", nil)
	}
	if normalize(lang) == "pt" {
		return t.Format("02/01/2006")
	}
	return t.Format("1/2/2006")
}

// Locale maps a pack language to the locale used for formatting.
func Locale(lang string) string {
	if lang == "pt" {
		return "pt-BR"
	}
	return lang
}

// Interpolate replaces {name} tokens; unknown tokens are left as they are.
func Interpolate(text string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(text, "{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(token string) string {
		name := token[1 : len(token)-1]
		if v, ok := params[name]; ok {
			return fmt.Sprint(v)
		}
		return token
	})
}

func (l *Localizer) cached(lang string) (Pack, bool) {
	v, ok := l.packs.Get(lang)
	if !ok {
		return nil, false
	}
	pack, ok := v.(Pack)
	return pack, ok
}

func (l *Localizer) load(ctx context.Context, lang string) (Pack, error) {
	if pack, ok := l.cached(lang); ok {
		return pack, nil
	}

	pack, err := l.fetchRemote(ctx, lang)
	if err != nil {
		l.logger.Warn("remote language pack unavailable, using embedded", zap.String("language", lang), zap.Error(err))
	}
	if pack == nil {
		if pack, err = readEmbedded(lang); err != nil {
			return nil, err
		}
	}

	l.packs.Set(lang, pack, cache.NoExpiration)
	l.logger.Info("language pack loaded", zap.String("language", lang))
	return pack, nil
}

func (l *Localizer) fetchRemote(ctx context.Context, lang string) (Pack, error) {
	if l.remote == nil {
		return nil, nil
	}
	resp, err := l.remote.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/assets/i18n/%s.json", lang))
	if err != nil {
		return nil, fmt.Errorf("fetch %s pack: %w", lang, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch %s pack: status %d", lang, resp.StatusCode())
	}
	var pack Pack
	if err := json.Unmarshal(resp.Body(), &pack); err != nil {
		return nil, fmt.Errorf("decode %s pack: %w", lang, err)
	}
	return pack, nil
}

func readEmbedded(lang string) (Pack, error) {
	data, err := embedded.ReadFile("locales/" + lang + ".json")
	if err != nil {
		return nil, fmt.Errorf("language %q not available: %w", lang, err)
	}
	var pack Pack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("decode embedded %s pack: %w", lang, err)
	}
	return pack, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]any:
			flatten(key, val, out)
		}
	}
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// Bound is a Translator for a single language.
type Bound struct {
	l    *Localizer
	lang string
}

// T translates key in the bound language.
func (b Bound) T(key string, params map[string]any) string {
	return b.l.T(b.lang, key, params)
}

// FormatNumber groups digits for the bound language.
func (b Bound) FormatNumber(n int) string {
	return b.l.FormatNumber(b.lang, n)
}

// Language returns the bound language.
func (b Bound) Language() string { return b.lang }

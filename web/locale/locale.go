// Package locale localizes the proxy's page text and notices.
package locale

import (
	"io/fs"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/learnboard/learnboard/logger"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

const (
	localizerKey = "localizer"
	langCookie   = "lang"
)

var i18nBundle *i18n.Bundle

// InitLocalizer loads every TOML file under dir in fsys. English is the
// fallback language.
func InitLocalizer(fsys fs.FS, dir string) error {
	bundle := newBundle()
	if err := parseTranslationFiles(fsys, dir, bundle); err != nil {
		return err
	}
	i18nBundle = bundle
	return nil
}

func newBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.MustParse("en-US"))
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	return bundle
}

func createTemplateData(params []string, separator ...string) map[string]any {
	sep := "=="
	if len(separator) > 0 {
		sep = separator[0]
	}

	templateData := make(map[string]any)
	for _, param := range params {
		parts := strings.SplitN(param, sep, 2)
		if len(parts) != 2 {
			continue
		}
		templateData[parts[0]] = parts[1]
	}

	return templateData
}

// Localize translates key with "name==value" params. A missing localizer or
// message falls back to the key.
func Localize(localizer *i18n.Localizer, key string, params ...string) string {
	if localizer == nil {
		return key
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: createTemplateData(params),
	})
	if err != nil {
		logger.Warningf("Failed to localize message %q: %v", key, err)
		return key
	}
	return msg
}

// LocalizerMiddleware picks the language from the "lang" cookie or the
// Accept-Language header and stores a localizer in the request context.
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if i18nBundle == nil {
			i18nBundle = newBundle()
		}
		var langs []string
		if cookie, err := c.Request.Cookie(langCookie); err == nil && cookie.Value != "" {
			langs = append(langs, cookie.Value)
		}
		langs = append(langs, c.GetHeader("Accept-Language"))

		c.Set(localizerKey, i18n.NewLocalizer(i18nBundle, langs...))
		c.Next()
	}
}

// Localizer returns the request's localizer, or nil outside the middleware.
func Localizer(c *gin.Context) *i18n.Localizer {
	if v, ok := c.Get(localizerKey); ok {
		if l, ok := v.(*i18n.Localizer); ok {
			return l
		}
	}
	return nil
}

// I18n localizes key for the current request.
func I18n(c *gin.Context, key string, params ...string) string {
	return Localize(Localizer(c), key, params...)
}

func parseTranslationFiles(fsys fs.FS, dir string, bundle *i18n.Bundle) error {
	return fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		_, err = bundle.ParseMessageFileBytes(data, path)
		return err
	})
}

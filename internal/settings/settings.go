// Package settings reads the user's currency and ticker preferences.
package settings

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"kopilka/internal/core"
	"kopilka/internal/log"
)

const (
	keyCurrencies = "user_currencies"
	keyStocks     = "user_stocks"
)

// Loader reads a JSON settings file on every call so edits apply without a restart.
type Loader struct {
	path   string
	logger *log.Logger
}

func NewLoader(path string, logger *log.Logger) *Loader {
	return &Loader{path: path, logger: log.OrDiscard(logger).WithComponent(log.ComponentSettings)}
}

// Load never fails: a missing or malformed file yields empty settings.
func (l *Loader) Load(ctx context.Context) core.Settings {
	empty := core.Settings{Currencies: []string{}, Stocks: []string{}}
	if strings.TrimSpace(l.path) == "" {
		return empty
	}

	v := viper.New()
	v.SetConfigFile(l.path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			l.logger.WarnContext(ctx, "Settings file not found, using empty settings", log.FieldPathFile, l.path)
		} else {
			l.logger.ErrorContext(ctx, "Failed to read settings, using empty settings",
				log.FieldPathFile, l.path, log.FieldError, err)
		}
		return empty
	}

	s := core.Settings{
		Currencies: clean(v.GetStringSlice(keyCurrencies)),
		Stocks:     clean(v.GetStringSlice(keyStocks)),
	}
	l.logger.DebugContext(ctx, "Settings loaded",
		"currencies", len(s.Currencies),
		"stocks", len(s.Stocks))
	return s
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

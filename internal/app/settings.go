package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gossip-lsp/weblsp/languages"
)

// ClientSection is the settings section the editor extension contributes.
const ClientSection = "multiLanguageServer"

// Settings is the effective server configuration. It is built from CLI
// flags, then the TOML config file, then editor settings.
type Settings struct {
	HTML          LanguageSettings `toml:"html"`
	CSS           LanguageSettings `toml:"css"`
	JSON          LanguageSettings `toml:"json"`
	Notifications bool             `toml:"notifications"`
	LogLevel      string           `toml:"log_level"`
}

type LanguageSettings struct {
	Enable bool `toml:"enable"`
}

// DefaultSettings enables every language and notifications.
func DefaultSettings() Settings {
	return Settings{
		HTML:          LanguageSettings{Enable: true},
		CSS:           LanguageSettings{Enable: true},
		JSON:          LanguageSettings{Enable: true},
		Notifications: true,
		LogLevel:      "info",
	}
}

func (s *Settings) Validate() error {
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// Languages returns the enabled languages.
func (s *Settings) Languages() languages.LanguageSet {
	return languages.LanguageSet{
		languages.HTML: s.HTML.Enable,
		languages.CSS:  s.CSS.Enable,
		languages.JSON: s.JSON.Enable,
	}
}

// Level returns the configured log level, defaulting to info.
func (s *Settings) Level() slog.Level {
	level, err := ParseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func (s *Settings) toggle(l languages.Language) *bool {
	switch l {
	case languages.HTML:
		return &s.HTML.Enable
	case languages.CSS:
		return &s.CSS.Enable
	case languages.JSON:
		return &s.JSON.Enable
	}
	return nil
}

// ApplyClientSettings overlays editor settings. The payload is either the
// whole settings object, holding a multiLanguageServer section, or the
// section itself as sent in initializationOptions. Keys may be nested
// ({"html": {"enable": false}}) or dotted ({"html.enable": false}).
func (s *Settings) ApplyClientSettings(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("client settings are not valid JSON")
	}
	section := gjson.ParseBytes(raw)
	if nested := section.Get(ClientSection); nested.Exists() {
		section = nested
	}
	if !section.IsObject() {
		return nil
	}

	for _, l := range languages.All {
		v, err := boolSetting(section, string(l)+".enable")
		if err != nil {
			return err
		}
		if v != nil {
			*s.toggle(l) = *v
		}
	}

	v, err := boolSetting(section, "notifications")
	if err != nil {
		return err
	}
	if v != nil {
		s.Notifications = *v
	}

	if level := section.Get("logLevel"); level.Exists() {
		if level.Type != gjson.String {
			return fmt.Errorf("%s.logLevel: expected a string", ClientSection)
		}
		s.LogLevel = level.String()
	}
	return nil
}

// boolSetting looks key up as a nested path and then as a literal dotted
// key. A missing key returns nil.
func boolSetting(section gjson.Result, key string) (*bool, error) {
	r := section.Get(key)
	if !r.Exists() {
		r = section.Get(strings.ReplaceAll(key, ".", `\.`))
	}
	if !r.Exists() || r.Type == gjson.Null {
		return nil, nil
	}
	if r.Type != gjson.True && r.Type != gjson.False {
		return nil, fmt.Errorf("%s.%s: expected a boolean, got %s", ClientSection, key, r.Raw)
	}
	v := r.Bool()
	return &v, nil
}

// ParseLevel accepts debug, info, warn and error, case-insensitively. An
// empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

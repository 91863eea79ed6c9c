package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const redacted = "***"

// New JSON-логгер в stdout. secrets вырезаются из строк и ошибок:
// tgbotapi кладёт токен бота в URL запроса, а он попадает в текст ошибки.
func New(env string, secrets ...string) *slog.Logger {
	return NewWithWriter(os.Stdout, env, secrets...)
}

func NewWithWriter(w io.Writer, env string, secrets ...string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, redacted)
		}
	}
	if len(pairs) > 0 {
		r := strings.NewReplacer(pairs...)
		opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
			switch a.Value.Kind() {
			case slog.KindString:
				a.Value = slog.StringValue(r.Replace(a.Value.String()))
			case slog.KindAny:
				if err, ok := a.Value.Any().(error); ok {
					a.Value = slog.StringValue(r.Replace(err.Error()))
				}
			}
			return a
		}
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Package server localizes HTML responses per request.
package server

import (
	"bytes"
	"context"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// LocaleCookie remembers a locale chosen with the lang query parameter.
const LocaleCookie = "langsys_locale"

// LocaleParam is the query parameter that selects a locale.
const LocaleParam = "lang"

// TranslateFunc localizes an HTML page for locale.
type TranslateFunc func(ctx context.Context, markup, locale string) (string, error)

// Options configures Middleware.
type Options struct {
	// Locales lists the supported locales. Empty accepts any explicit choice
	// and disables Accept-Language matching.
	Locales []string
	// SourceLocale is the language pages are written in. Requests resolved
	// to it are served untouched.
	SourceLocale string
	Logger       *zap.Logger
}

type localeKey struct{}

// LocaleFromContext returns the locale the middleware resolved for a request.
func LocaleFromContext(ctx context.Context) string {
	locale, _ := ctx.Value(localeKey{}).(string)
	return locale
}

// ResolveLocale picks the locale of r: the lang query parameter, then the
// locale cookie, then Accept-Language matched against supported, then
// fallback.
func ResolveLocale(r *http.Request, supported []string, fallback string) string {
	if l := acceptable(r.URL.Query().Get(LocaleParam), supported); l != "" {
		return l
	}
	if c, err := r.Cookie(LocaleCookie); err == nil {
		if l := acceptable(c.Value, supported); l != "" {
			return l
		}
	}
	return langsys.MatchLocale(r.Header.Get("Accept-Language"), supported, langsys.NormalizeLocale(fallback))
}

func acceptable(locale string, supported []string) string {
	locale = langsys.NormalizeLocale(locale)
	if locale == "" {
		return ""
	}
	if len(supported) == 0 {
		return locale
	}
	for _, s := range supported {
		if langsys.NormalizeLocale(s) == locale {
			return locale
		}
	}
	return ""
}

// Middleware buffers successful text/html responses and passes them through
// translate for the request's locale. Encoded bodies, other responses and
// failed translations are served as the handler wrote them. A translated
// response loses its ETag, which identified the source-language body.
func Middleware(translate TranslateFunc, opts Options) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	source := langsys.NormalizeLocale(opts.SourceLocale)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := ResolveLocale(r, opts.Locales, source)
			if chosen := acceptable(r.URL.Query().Get(LocaleParam), opts.Locales); chosen != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     LocaleCookie,
					Value:    chosen,
					Path:     "/",
					MaxAge:   int((365 * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Add("Vary", "Accept-Language")
			w.Header().Add("Vary", "Cookie")

			r = r.WithContext(context.WithValue(r.Context(), localeKey{}, locale))
			if locale == "" || locale == source || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bufferedResponse{header: make(http.Header), status: http.StatusOK}
			next.ServeHTTP(buf, r)

			body := buf.body.Bytes()
			if buf.status == http.StatusOK && isHTML(buf.header.Get("Content-Type")) && buf.header.Get("Content-Encoding") == "" {
				out, err := translate(r.Context(), string(body), locale)
				if err != nil {
					logger.Warn("translating response failed, serving original",
						zap.String("path", r.URL.Path),
						zap.String("locale", locale),
						zap.String("request_id", middleware.GetReqID(r.Context())),
						zap.Error(err))
				} else {
					body = []byte(out)
					buf.header.Set("Content-Language", locale)
					buf.header.Del("ETag")
				}
			}

			dst := w.Header()
			for k, vs := range buf.header {
				if k == "Vary" {
					for _, v := range vs {
						dst.Add(k, v)
					}
					continue
				}
				dst[k] = vs
			}
			dst.Del("Content-Length")
			dst.Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(buf.status)
			_, _ = w.Write(body)
		})
	}
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}

// bufferedResponse holds a handler's response until it is translated.
type bufferedResponse struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.status = status
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	if b.header.Get("Content-Type") == "" {
		b.header.Set("Content-Type", http.DetectContentType(p))
	}
	return b.body.Write(p)
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Dir       string // Static site root
	Translate TranslateFunc
	Options   Options
	// Logs enables the log viewer at LogsPath.
	Logs *logging.Viewer
}

// NewRouter serves Dir through Middleware, with /healthz and the optional
// log viewer outside it.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + langsys.FullVersion() + `"}`))
	})

	if cfg.Logs != nil {
		r.Mount(LogsPath, LogsRouter(cfg.Logs, cfg.Options.Logger))
	}

	r.Group(func(r chi.Router) {
		r.Use(Middleware(cfg.Translate, cfg.Options))
		r.Handle("/*", http.FileServer(http.Dir(cfg.Dir)))
	})
	return r
}

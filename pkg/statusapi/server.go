// Package statusapi serves the roster snapshot over HTTP.
package statusapi

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen -generate types -package oapi -o internal/oapi/types.gen.go openapi.yaml

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/masahide/donutsmp-bot/pkg/roster"
)

//go:embed openapi.yaml
var docsFS embed.FS

// Config is read from the STATUS_* environment variables.
type Config struct {
	// 空なら API サーバーは起動しない
	APIAddr string `envconfig:"API_ADDR"`

	// 例: "https://bot.example.com,https://bot2.example.com"
	OpenAPIServers []string `envconfig:"OPENAPI_SERVERS"`
	// OpenAPIServers が空のときに使用
	PublicBaseURL     string        `envconfig:"PUBLIC_BASE_URL"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	// 全体のフェイルセーフ・タイムアウト（ミドルウェア）
	GlobalTimeout time.Duration `envconfig:"GLOBAL_TIMEOUT" default:"30s"`

	AuthBearerToken string `envconfig:"AUTH_BEARER_TOKEN"`
	APIKey          string `envconfig:"API_KEY"`
	AllowNoAuth     bool   `envconfig:"ALLOW_NO_AUTH" default:"false"` // 一時無効化用
}

// LoadConfigFromEnv reads the STATUS_* variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("STATUS", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewServer returns an unstarted server for cfg.APIAddr.
func NewServer(cfg Config, agg *roster.Aggregator) *http.Server {
	return &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           NewHandler(cfg, agg),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler builds the routes wrapped in the middleware chain.
func NewHandler(cfg Config, agg *roster.Aggregator) http.Handler {
	s := &server{agg: agg, now: time.Now}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /roster", s.getRoster)
	mux.HandleFunc("GET /roster/{name}", s.getPlayer)
	mux.HandleFunc("POST /roster/refresh", s.refreshRoster)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /docs/openapi.yaml", newDocsHandler(cfg))

	// 外側から順に recover → log → auth → timeout
	return wrap(mux,
		recoverMW,
		logMW,
		credentials{bearer: cfg.AuthBearerToken, apiKey: cfg.APIKey, open: cfg.AllowNoAuth}.middleware,
		timeoutMW(cfg.GlobalTimeout),
	)
}

// Middleware decorates a handler.
type Middleware func(http.Handler) http.Handler

// wrap applies mws so that mws[0] sees the request first.
func wrap(h http.Handler, mws ...Middleware) http.Handler {
	for i := range mws {
		h = mws[len(mws)-1-i](h)
	}
	return h
}

func recoverMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[PANIC] %s %s: %v", r.Method, r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the code passed to WriteHeader for the access log.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func logMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("api: %s %s -> %d (%s)", r.Method, r.URL.Path, rec.code, time.Since(start).Round(time.Millisecond))
	})
}

func timeoutMW(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// credentials holds the secrets accepted by the API. Either one is enough.
type credentials struct {
	bearer string
	apiKey string
	open   bool
}

// publicPath reports paths served without credentials.
func publicPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/docs/")
}

func secretEqual(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (c credentials) allows(r *http.Request) bool {
	if c.open || publicPath(r.URL.Path) {
		return true
	}
	if tok, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found && secretEqual(tok, c.bearer) {
		return true
	}
	return secretEqual(r.Header.Get("X-API-Key"), c.apiKey)
}

func (c credentials) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.allows(r) {
			next.ServeHTTP(w, r)
			return
		}
		if c.bearer != "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="donutsmp-bot"`)
		}
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid credentials")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}

// queryBool parses an optional boolean query parameter.
// strconv の表記に加えて yes/no と on/off も受け付ける
func queryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := strings.ToLower(r.URL.Query().Get(key))
	switch raw {
	case "":
		return def, nil
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("query %s: %q is not a boolean", key, raw)
	}
	return v, nil
}

// newDocsHandler serves the embedded OpenAPI document with its servers list
// replaced per request. The document is parsed once.
func newDocsHandler(cfg Config) http.Handler {
	var base map[string]any
	raw, err := docsFS.ReadFile("openapi.yaml")
	if err == nil {
		err = yaml.Unmarshal(raw, &base)
	}
	if err != nil {
		log.Printf("api: embedded openapi.yaml unusable: %v", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
		})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := maps.Clone(base)
		var servers []map[string]any
		for _, u := range serverURLs(cfg, r) {
			servers = append(servers, map[string]any{"url": u})
		}
		doc["servers"] = servers
		out, err := yaml.Marshal(doc)
		if err != nil {
			http.Error(w, "openapi marshal: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(out)
	})
}

// serverURLs picks the advertised base URLs: STATUS_OPENAPI_SERVERS first,
// then STATUS_PUBLIC_BASE_URL, then the request's own scheme and host.
func serverURLs(cfg Config, r *http.Request) []string {
	var urls []string
	for _, u := range cfg.OpenAPIServers {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	switch {
	case len(urls) > 0:
		return urls
	case strings.TrimSpace(cfg.PublicBaseURL) != "":
		return []string{strings.TrimSpace(cfg.PublicBaseURL)}
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	return []string{scheme + "://" + r.Host}
}

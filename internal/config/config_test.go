package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// App
	t.Setenv("ENV", "prod")
	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("APP_URL", "https://app.example.com/") // trailing slash stripped

	// Payments / Identity
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("AUTH_JWT_PUBLIC_KEY", `{"kty":"EC","crv":"P-256","x":"a","y":"b"}`)

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging / Docs
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}

	// App
	if cfg.Env != "prod" || cfg.DBPath != "db.sqlite" || cfg.AppURL != "https://app.example.com" {
		t.Fatalf("app fields unexpected: %+v", cfg)
	}

	// Payments / Identity
	if cfg.Stripe.SecretKey != "sk_test_123" || cfg.Stripe.WebhookSecret != "whsec_123" {
		t.Fatalf("stripe fields unexpected: %+v", cfg.Stripe)
	}
	if !strings.Contains(cfg.Auth.PublicKeyJWK, `"kty":"EC"`) {
		t.Fatalf("auth key unexpected: %q", cfg.Auth.PublicKeyJWK)
	}

	// Rate limiting fallbacks
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate fields unexpected: %+v", cfg)
	}

	// Web protection
	wantOrigins := []string{"https://a.com", "http://b"}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, wantOrigins) {
		t.Fatalf("cors origins = %#v, want %#v", cfg.CORS.AllowedOrigins, wantOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security fields unexpected: %+v", cfg.Security)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure ||
		cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel fields unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_LocalAllowsEmptySecrets(t *testing.T) {
	t.Setenv("ENV", "local")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("AUTH_JWT_PUBLIC_KEY", "")

	if _, err := Load(); err != nil {
		t.Fatalf("local env must tolerate empty secrets, got: %v", err)
	}
}

// --- validation errors ---

func TestLoad_ValidationErrors(t *testing.T) {
	base := func(t *testing.T) {
		t.Helper()
		t.Setenv("ENV", "prod")
		t.Setenv("STRIPE_SECRET_KEY", "sk")
		t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec")
		t.Setenv("AUTH_JWT_PUBLIC_KEY", "{}")
	}

	cases := []struct {
		name    string
		setup   func(t *testing.T)
		wantSub string
	}{
		{"bad log level", func(t *testing.T) { base(t); t.Setenv("LOG_LEVEL", "verbose") }, "LOG_LEVEL"},
		{"bad env", func(t *testing.T) { base(t); t.Setenv("ENV", "staging") }, "ENV"},
		{"negative timeout", func(t *testing.T) { base(t); t.Setenv("READ_TIMEOUT", "-1s") }, "timeouts"},
		{"zero header bytes", func(t *testing.T) { base(t); t.Setenv("MAX_HEADER_BYTES", "0") }, "MAX_HEADER_BYTES"},
		{"blank db path", func(t *testing.T) { base(t); t.Setenv("DB_PATH", "   ") }, "DB_PATH"},
		{"negative rps", func(t *testing.T) { base(t); t.Setenv("RATE_RPS", "-1") }, "RATE_RPS"},
		{"zero burst", func(t *testing.T) { base(t); t.Setenv("RATE_BURST", "0") }, "RATE_BURST"},
		{"sample ratio out of range", func(t *testing.T) { base(t); t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5") }, "OTEL_TRACES_SAMPLER_ARG"},
		{"missing stripe key in prod", func(t *testing.T) { base(t); t.Setenv("STRIPE_SECRET_KEY", " ") }, "STRIPE_SECRET_KEY"},
		{"missing webhook secret in prod", func(t *testing.T) { base(t); t.Setenv("STRIPE_WEBHOOK_SECRET", " ") }, "STRIPE_WEBHOOK_SECRET"},
		{"missing jwt key in prod", func(t *testing.T) { base(t); t.Setenv("AUTH_JWT_PUBLIC_KEY", " ") }, "AUTH_JWT_PUBLIC_KEY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setup(t)
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

// --- helpers ---

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"v1", "/v1"},
		{"/v1/", "/v1"},
		{"  /api/v1  ", "/api/v1"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	if got := splitCSV(""); got != nil {
		t.Fatalf("empty input should return nil, got %#v", got)
	}
	want := []string{"a", "b"}
	if got := splitCSV(" a ,, b "); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV = %#v, want %#v", got, want)
	}
}

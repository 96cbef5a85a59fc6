package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		want           bool
	}{
		{
			name:           "exact match",
			origin:         "https://forms.example.cl",
			allowedOrigins: []string{"https://forms.example.cl"},
			want:           true,
		},
		{
			name:           "wildcard match",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches second",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "no match",
			origin:         "http://evil.com",
			allowedOrigins: []string{"chrome-extension://*"},
			want:           false,
		},
		{
			name:           "empty origin",
			origin:         "",
			allowedOrigins: []string{"*"},
			want:           false,
		},
		{
			name:           "empty allowed list",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{},
			want:           false,
		},
		{
			name:           "partial wildcard match",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-*"},
			want:           true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isAllowedOrigin(tt.origin, tt.allowedOrigins)
			if got != tt.want {
				t.Errorf("isAllowedOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		method     string
		wantStatus int
		wantCORS   bool
	}{
		{name: "allowed origin - GET request", origin: "chrome-extension://abc", method: http.MethodGet, wantStatus: http.StatusOK, wantCORS: true},
		{name: "allowed origin - OPTIONS request", origin: "chrome-extension://abc", method: http.MethodOptions, wantStatus: http.StatusNoContent, wantCORS: true},
		{name: "disallowed origin", origin: "http://evil.com", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "no origin header", method: http.MethodGet, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORSMiddleware([]string{"chrome-extension://*"}))
			router.GET("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "OK")
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}

			corsHeader := w.Header().Get("Access-Control-Allow-Origin")
			if tt.wantCORS {
				if corsHeader != tt.origin {
					t.Errorf("Access-Control-Allow-Origin = %s, want %s", corsHeader, tt.origin)
				}
				if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
					t.Errorf("Access-Control-Allow-Credentials not set to true")
				}
			} else if corsHeader != "" {
				t.Errorf("Access-Control-Allow-Origin should not be set, got %s", corsHeader)
			}
		})
	}
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(LoggerMiddleware(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, path := range []string{"/ok", "/bad"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].ContextMap()["path"] != "/ok" {
		t.Errorf("first entry = %v %v, want info for /ok", entries[0].Level, entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("second entry level = %v, want warn", entries[1].Level)
	}
	if status := entries[1].ContextMap()["status"]; status != int64(http.StatusBadRequest) {
		t.Errorf("status field = %v, want 400", status)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(RecoveryMiddleware(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Errorf("expected one panic log entry, got %d", logs.Len())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	newRouter := func(perMinute int) *gin.Engine {
		router := gin.New()
		router.Use(RateLimitMiddleware(perMinute))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}
	request := func(router *gin.Engine, remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("rejects requests over the burst", func(t *testing.T) {
		router := newRouter(2)

		for i := 0; i < 2; i++ {
			if code := request(router, "192.0.2.1:1000"); code != http.StatusOK {
				t.Fatalf("request %d: Status = %d, want 200", i+1, code)
			}
		}
		if code := request(router, "192.0.2.1:1000"); code != http.StatusTooManyRequests {
			t.Errorf("Status = %d, want 429", code)
		}
		if code := request(router, "192.0.2.2:1000"); code != http.StatusOK {
			t.Errorf("other client Status = %d, want 200", code)
		}
	})

	t.Run("zero disables limiting", func(t *testing.T) {
		router := newRouter(0)
		for i := 0; i < 20; i++ {
			if code := request(router, "192.0.2.1:1000"); code != http.StatusOK {
				t.Fatalf("request %d: Status = %d, want 200", i+1, code)
			}
		}
	})
}

func TestIPRateLimiter_SweepsIdleClients(t *testing.T) {
	limiter := newIPRateLimiter(rate.Every(time.Minute), 1)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if !limiter.allow("a", start) {
		t.Fatal("first request should pass")
	}
	if limiter.allow("a", start.Add(time.Second)) {
		t.Fatal("second request inside the window should be rejected")
	}

	limiter.allow("b", start.Add(limiterIdleTTL+2*time.Minute))

	if _, ok := limiter.limiters["a"]; ok {
		t.Error("idle limiter for a should have been swept")
	}
	if len(limiter.limiters) != 1 {
		t.Errorf("limiters = %d, want 1", len(limiter.limiters))
	}
}

package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
)

type empty struct{}

func okHandler(seen *context.Context) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		*seen = ctx
		return connect.NewResponse(&empty{}), nil
	}
}

func requestWithAuth(header string) *connect.Request[empty] {
	req := connect.NewRequest(&empty{})
	if header != "" {
		req.Header().Set("Authorization", header)
	}
	return req
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u1", Email: "a@example.com", DisplayName: "Krishna Kumar"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seen context.Context
	handler := RequireAuth(jwtManager)(okHandler(&seen))

	if _, err := handler(context.Background(), requestWithAuth("")); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("Expected Unauthenticated without header, got %v", err)
	}
	if _, err := handler(context.Background(), requestWithAuth("Bearer nope")); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("Expected Unauthenticated for bad token, got %v", err)
	}

	if _, err := handler(context.Background(), requestWithAuth("Bearer "+token)); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if GetUserID(seen) != "u1" || GetEmail(seen) != "a@example.com" || GetMember(seen) != "Krishna Kumar" {
		t.Errorf("Identity not propagated: %q %q %q", GetUserID(seen), GetEmail(seen), GetMember(seen))
	}
}

func TestRequireAuth_UnlistedProcedurePassesThrough(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)

	var seen context.Context
	handler := RequireAuth(jwtManager, "/splitledger.v1.LedgerService/AddExpense")(okHandler(&seen))

	// A bare request has no procedure, so it is not in the protected set.
	if _, err := handler(context.Background(), requestWithAuth("")); err != nil {
		t.Fatalf("Expected pass-through, got %v", err)
	}
	if GetUserID(seen) != "" {
		t.Errorf("Expected no user, got %q", GetUserID(seen))
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u2", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var seen context.Context
	handler := OptionalAuth(jwtManager)(okHandler(&seen))

	if _, err := handler(context.Background(), requestWithAuth("Bearer garbage")); err != nil {
		t.Fatalf("Expected success with invalid token, got %v", err)
	}
	if GetUserID(seen) != "" {
		t.Errorf("Expected no user for invalid token, got %q", GetUserID(seen))
	}

	if _, err := handler(context.Background(), requestWithAuth("Bearer "+token)); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if GetUserID(seen) != "u2" {
		t.Errorf("Expected user u2, got %q", GetUserID(seen))
	}
}

func TestMetricsInterceptor(t *testing.T) {
	m := metrics.New()
	ok := MetricsInterceptor(m)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return connect.NewResponse(&empty{}), nil
	})
	failing := MetricsInterceptor(m)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("missing"))
	})

	_, _ = ok(context.Background(), requestWithAuth(""))
	_, _ = ok(context.Background(), requestWithAuth(""))
	_, _ = failing(context.Background(), requestWithAuth(""))

	// One series per (procedure, code) pair.
	got, err := testutil.GatherAndCount(m.Registry(), "splitledger_rpc_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if got != 2 {
		t.Errorf("Expected 2 request series, got %d", got)
	}
}

func TestLoggingInterceptor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wantErr := errors.New("boom")
	handler := LoggingInterceptor(logger)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, wantErr
	})

	if _, err := handler(context.Background(), requestWithAuth("")); !errors.Is(err, wantErr) {
		t.Errorf("Expected error to pass through, got %v", err)
	}
}

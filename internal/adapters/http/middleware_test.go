package httpadapter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-workflow/internal/config"
)

func TestRequestIDPropagatesOnlyPlainTokens(t *testing.T) {
	handler := newTestRouter(config.Config{}, newTestServices()).Handler()

	for _, tc := range []struct {
		sent string
		echo bool
	}{
		{sent: "req-123_abc.1", echo: true},
		{sent: "", echo: false},
		{sent: "bad id with spaces", echo: false},
		{sent: "x\"}{\"status\":200", echo: false},
		{sent: string(bytes.Repeat([]byte("a"), maxRequestIDLen+1)), echo: false},
	} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		if tc.sent != "" {
			req.Header.Set(requestIDHeader, tc.sent)
		}
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		got := res.Header().Get(requestIDHeader)
		if tc.echo && got != tc.sent {
			t.Fatalf("expected %q to be echoed, got %q", tc.sent, got)
		}
		if !tc.echo {
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid for %q, got %q", tc.sent, got)
			}
		}
	}
}

func TestAccessLogReportsRouteAndPrincipal(t *testing.T) {
	var logs bytes.Buffer
	opts := OptionsFromConfig(config.Config{AuthAllowHeader: true, AuthJWTSecret: testJWTSecret})
	opts.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	handler := NewRouter(newTestServices().services(), opts).Handler()

	res := doRequest(t, handler, http.MethodGet, "/v1/tarefas/task-9", nil, map[string]string{
		tenantHeader:    "tenant-a",
		userHeader:      "user-a",
		requestIDHeader: "req-42",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	entry := findLogRecord(t, &logs, "http_request")
	for key, want := range map[string]string{
		"request_id": "req-42",
		"route":      "/v1/tarefas/{id}",
		"path":       "/v1/tarefas/task-9",
		"tenant_id":  "tenant-a",
		"user_id":    "user-a",
	} {
		if got, _ := entry[key].(string); got != want {
			t.Fatalf("%s = %q, want %q (record %v)", key, got, want, entry)
		}
	}
}

func TestAccessLogOmitsPrincipalForRejectedRequests(t *testing.T) {
	var logs bytes.Buffer
	opts := OptionsFromConfig(config.Config{AuthJWTSecret: testJWTSecret})
	opts.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	handler := NewRouter(newTestServices().services(), opts).Handler()

	res := doRequest(t, handler, http.MethodGet, "/v1/tarefas", nil, map[string]string{tenantHeader: "tenant-a"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	entry := findLogRecord(t, &logs, "http_request")
	if _, ok := entry["tenant_id"]; ok {
		t.Fatalf("rejected request must not carry a tenant: %v", entry)
	}
	if entry["level"] != "WARN" {
		t.Fatalf("4xx should log at warn, got %v", entry["level"])
	}
}

func findLogRecord(t *testing.T, logs *bytes.Buffer, msg string) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(logs.Bytes()))
	for scanner.Scan() {
		var record map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		if record["msg"] == msg {
			return record
		}
	}
	t.Fatalf("no %q record in logs:\n%s", msg, logs.String())
	return nil
}

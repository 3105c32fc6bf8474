package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/bundle"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	im "github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/ratelimit"
	issvc "github.com/vbncursed/vkr/pass-service/internal/service"
)

var lastModified = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePasses struct {
	issueErr   error
	fetch      issvc.FetchResult
	fetchErr   error
	statusErr  error
	pushErr    error
	lastFetch  issvc.FetchCommand
	lastIssue  issvc.IssueCommand
	lastTriple issvc.FetchByTripleCommand
}

func (f *fakePasses) Issue(_ context.Context, cmd issvc.IssueCommand) (issvc.PassBundle, error) {
	f.lastIssue = cmd
	if f.issueErr != nil {
		return issvc.PassBundle{}, f.issueErr
	}
	return issvc.PassBundle{Data: []byte("PK-bundle"), SerialNumber: "S1", CacheValidator: `"abc"`, LastModified: lastModified}, nil
}

func (f *fakePasses) FetchBySerial(_ context.Context, cmd issvc.FetchCommand) (issvc.FetchResult, error) {
	f.lastFetch = cmd
	return f.fetch, f.fetchErr
}

func (f *fakePasses) FetchByTriple(_ context.Context, cmd issvc.FetchByTripleCommand) (issvc.FetchResult, error) {
	f.lastTriple = cmd
	return f.fetch, f.fetchErr
}

func (f *fakePasses) ChangeStatus(_ context.Context, cmd issvc.ChangeStatusCommand) (im.IdentityRecord, error) {
	if f.statusErr != nil {
		return im.IdentityRecord{}, f.statusErr
	}
	return im.IdentityRecord{SerialNumber: cmd.SerialNumber, Status: cmd.Status, UpdatedAt: lastModified}, nil
}

func (f *fakePasses) RequestPush(_ context.Context, serial string) (issvc.PushResult, error) {
	if f.pushErr != nil {
		return issvc.PushResult{}, f.pushErr
	}
	return issvc.PushResult{SerialNumber: serial, CacheValidator: `"def"`, Changed: true}, nil
}

func (f *fakePasses) SignerInfo() issvc.SignerInfo {
	return issvc.SignerInfo{
		PassTypeIdentifier: "pass.com.example.loyalty",
		TeamIdentifier:     "TEAM123456",
		Certificates:       []crypto.CertInfo{{Subject: "CN=Pass Type ID", FingerprintSHA256: "ff"}},
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func do(t *testing.T, d Deps, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	Router(d).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

func TestCreatePass(t *testing.T) {
	svc := &fakePasses{}
	rec := do(t, Deps{Service: svc}, http.MethodPost, "/api/v1/passes",
		`{"customer_id":"C1","offer_id":"O1","wallet_type":"apple"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != bundle.ContentType {
		t.Fatalf("content type = %q", ct)
	}
	if rec.Header().Get("ETag") != `"abc"` || rec.Header().Get("Last-Modified") != lastModified.Format(http.TimeFormat) {
		t.Fatalf("validators missing: %v", rec.Header())
	}
	if rec.Body.String() != "PK-bundle" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if svc.lastIssue.WalletType != im.WalletApple || svc.lastIssue.CustomerID != "C1" {
		t.Fatalf("command = %+v", svc.lastIssue)
	}
}

func TestCreatePassRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		svc  *fakePasses
		want int
		code string
	}{
		{"unknown field", `{"customer_id":"C1","offer_id":"O1","wallet_type":"apple","x":1}`, &fakePasses{}, 400, "invalid_request"},
		{"missing ids", `{"wallet_type":"apple"}`, &fakePasses{}, 400, "invalid_request"},
		{"bad wallet", `{"customer_id":"C1","offer_id":"O1","wallet_type":"nokia"}`, &fakePasses{}, 400, "invalid_request"},
		{"catalog miss", `{"customer_id":"C1","offer_id":"O1","wallet_type":"apple"}`,
			&fakePasses{issueErr: apperr.New(apperr.CategoryNotFound, apperr.StageCatalog, "catalog_not_found", "customer or offer not found")}, 404, "catalog_not_found"},
		{"barcode", `{"customer_id":"C1","offer_id":"O1","wallet_type":"apple"}`,
			&fakePasses{issueErr: apperr.Invalid(apperr.StageBarcode, "barcode_encoding", "not representable")}, 400, "barcode_encoding"},
		{"signing down", `{"customer_id":"C1","offer_id":"O1","wallet_type":"apple"}`,
			&fakePasses{issueErr: apperr.Infra(errors.New("hsm"), apperr.StageSign, "sign_failed", "signing failed")}, 503, "sign_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, Deps{Service: tt.svc}, http.MethodPost, "/api/v1/passes", tt.body, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			if e := decodeError(t, rec); e.Code != tt.code {
				t.Fatalf("code = %q", e.Code)
			}
		})
	}
}

func TestGetPassConditional(t *testing.T) {
	hit := &fakePasses{fetch: issvc.FetchResult{NotModified: true, Bundle: issvc.PassBundle{SerialNumber: "S1", CacheValidator: `"abc"`, LastModified: lastModified}}}
	rec := do(t, Deps{Service: hit}, http.MethodGet, "/api/v1/passes/apple/C1/O1", "", map[string]string{"If-None-Match": `W/"abc"`})
	if rec.Code != http.StatusNotModified || rec.Body.Len() != 0 || rec.Header().Get("ETag") != `"abc"` {
		t.Fatalf("status = %d body=%q", rec.Code, rec.Body.String())
	}
	want := issvc.FetchByTripleCommand{CustomerID: "C1", OfferID: "O1", WalletType: im.WalletApple, IfNoneMatch: `W/"abc"`}
	if hit.lastTriple != want {
		t.Fatalf("command = %+v", hit.lastTriple)
	}
	if hit.lastIssue != (issvc.IssueCommand{}) {
		t.Fatalf("GET must not issue: %+v", hit.lastIssue)
	}

	miss := &fakePasses{fetch: issvc.FetchResult{Bundle: issvc.PassBundle{Data: []byte("PK-bundle"), SerialNumber: "S1", CacheValidator: `"abc"`, LastModified: lastModified}}}
	rec = do(t, Deps{Service: miss}, http.MethodGet, "/api/v1/passes/apple/C1/O1", "", map[string]string{"If-None-Match": `"zzz"`})
	if rec.Code != http.StatusOK || rec.Body.String() != "PK-bundle" {
		t.Fatalf("status = %d body=%q", rec.Code, rec.Body.String())
	}

	missing := &fakePasses{fetchErr: apperr.New(apperr.CategoryNotFound, apperr.StageRegistry, "pass_not_found", "pass not found")}
	rec = do(t, Deps{Service: missing}, http.MethodGet, "/api/v1/passes/apple/C9/O1", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unissued triple = %d", rec.Code)
	}
}

func TestChangeStatus(t *testing.T) {
	rec := do(t, Deps{Service: &fakePasses{}}, http.MethodPost, "/api/v1/passes/S1/status", `{"status":"revoked"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"revoked"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}

	conflict := &fakePasses{statusErr: apperr.New(apperr.CategoryConflict, apperr.StageRegistry, "invalid_transition", "cannot move pass from revoked to active")}
	rec = do(t, Deps{Service: conflict}, http.MethodPost, "/api/v1/passes/S1/status", `{"status":"active"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Details == nil {
		t.Fatalf("stage details missing: %+v", e)
	}

	rec = do(t, Deps{Service: &fakePasses{}}, http.MethodPost, "/api/v1/passes/S1/status", `{"status":"paused"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status = %d", rec.Code)
	}
}

func TestRequestPush(t *testing.T) {
	rec := do(t, Deps{Service: &fakePasses{}}, http.MethodPost, "/api/v1/passes/S1/push", "", nil)
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), `"changed":true`) {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	limited := &fakePasses{pushErr: apperr.New(apperr.CategoryRateLimited, apperr.StageRegistry, "push_limit", "at most 10 updates per 24h0m0s")}
	rec = do(t, Deps{Service: limited}, http.MethodPost, "/api/v1/passes/S1/push", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWalletGetPass(t *testing.T) {
	auth := map[string]string{"Authorization": "ApplePass tok"}
	path := "/v1/passes/pass.com.example.loyalty/S1"

	rec := do(t, Deps{Service: &fakePasses{}}, http.MethodGet, path, "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing auth = %d", rec.Code)
	}

	svc := &fakePasses{fetch: issvc.FetchResult{NotModified: true, Bundle: issvc.PassBundle{CacheValidator: `"abc"`, LastModified: lastModified}}}
	rec = do(t, Deps{Service: svc}, http.MethodGet, path, "", map[string]string{"Authorization": "ApplePass tok", "If-None-Match": `"abc"`})
	if rec.Code != http.StatusNotModified || rec.Header().Get("ETag") != `"abc"` {
		t.Fatalf("not modified = %d %v", rec.Code, rec.Header())
	}
	if svc.lastFetch.AuthenticationToken != "tok" || svc.lastFetch.PassTypeIdentifier != "pass.com.example.loyalty" || svc.lastFetch.IfNoneMatch != `"abc"` {
		t.Fatalf("fetch command = %+v", svc.lastFetch)
	}

	svc = &fakePasses{fetch: issvc.FetchResult{Bundle: issvc.PassBundle{Data: []byte("PK"), SerialNumber: "S1", CacheValidator: `"new"`, LastModified: lastModified}}}
	rec = do(t, Deps{Service: svc}, http.MethodGet, path, "", auth)
	if rec.Code != http.StatusOK || rec.Header().Get("Last-Modified") == "" || rec.Body.String() != "PK" {
		t.Fatalf("fresh = %d %v", rec.Code, rec.Header())
	}

	svc = &fakePasses{fetchErr: apperr.New(apperr.CategoryUnauthorized, apperr.StageRegistry, "bad_token", "authentication token does not match")}
	rec = do(t, Deps{Service: svc}, http.MethodGet, path, "", auth)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", rec.Code)
	}
}

func TestWalletRateLimit(t *testing.T) {
	d := Deps{
		Service:      &fakePasses{fetch: issvc.FetchResult{NotModified: true}},
		Limiter:      ratelimit.NewMemory(ratelimit.MemoryConfig{}),
		WalletLimit:  1,
		WalletWindow: time.Minute,
	}
	e := Router(d)
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/passes/pass.com.example.loyalty/S1", nil)
		req.Header.Set("Authorization", "ApplePass tok")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}
	if rec := call(); rec.Code != http.StatusNotModified || rec.Header().Get("RateLimit-Limit") != "1" {
		t.Fatalf("first = %d %v", rec.Code, rec.Header())
	}
	rec := call()
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second = %d %v", rec.Code, rec.Header())
	}
}

func TestWalletLog(t *testing.T) {
	rec := do(t, Deps{Service: &fakePasses{}}, http.MethodPost, "/v1/log", `{"logs":["bad signature"]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSignerAndProbes(t *testing.T) {
	d := Deps{Service: &fakePasses{}}
	rec := do(t, d, http.MethodGet, "/api/v1/signer", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"team_identifier":"TEAM123456"`) {
		t.Fatalf("signer = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, d, http.MethodGet, "/api/v1/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := do(t, d, http.MethodGet, "/api/v1/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz without db = %d", rec.Code)
	}
	d.Ready = []ReadyCheck{{Name: "postgres", Pinger: okPinger{}}}
	if rec := do(t, d, http.MethodGet, "/api/v1/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz with healthy db = %d", rec.Code)
	}
	d.Ready = append(d.Ready, ReadyCheck{Name: "redis", Pinger: failingPinger{}})
	rec = do(t, d, http.MethodGet, "/api/v1/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing redis = %d", rec.Code)
	}
	e := decodeError(t, rec)
	if details, _ := e.Details.(map[string]any); details["dependency"] != "redis" {
		t.Fatalf("failing dependency not named: %+v", e)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.New(apperr.CategoryInvalidInput, apperr.StageAssemble, "x", ""), 400},
		{apperr.New(apperr.CategoryNotFound, apperr.StageRegistry, "x", ""), 404},
		{apperr.New(apperr.CategoryUnauthorized, apperr.StageRegistry, "x", ""), 401},
		{apperr.New(apperr.CategoryConflict, apperr.StageRegistry, "x", ""), 409},
		{apperr.New(apperr.CategoryRateLimited, apperr.StageRegistry, "x", ""), 429},
		{apperr.Infra(errors.New("db"), apperr.StageRegistry, "x", ""), 503},
		{apperr.New(apperr.CategoryFatal, apperr.StageSign, "x", ""), 500},
		{context.DeadlineExceeded, 503},
		{context.Canceled, 503},
		{apperr.Infra(context.Canceled, apperr.StageRegistry, "request_canceled", ""), 503},
		{errors.New("plain"), 500},
	}
	for _, tt := range tests {
		if got, _ := MapError(tt.err); got != tt.want {
			t.Fatalf("MapError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
	_, body := MapError(apperr.Infra(errors.New("secret path /etc/key.pem"), apperr.StageSign, "sign_failed", "signing failed"))
	if strings.Contains(body.Message, "/etc") {
		t.Fatalf("cause leaked into body: %+v", body)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hollowaydev/fieldops/internal/model"
	"github.com/hollowaydev/fieldops/internal/notify"
	"github.com/hollowaydev/fieldops/internal/store"
)

type stubProvider struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (p *stubProvider) Send(ctx context.Context, token string, n notify.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.fail[token]
}

type sendFixture struct {
	handler   *SendHandler
	provider  *stubProvider
	users     *store.UserStore
	registrar *notify.Registrar
}

func setupSendHandler(t *testing.T) *sendFixture {
	t.Helper()
	db := setupDB(t)
	us := store.NewUserStore(db)
	ts := store.NewTokenStore(db)
	provider := &stubProvider{fail: map[string]error{}}
	dispatcher := notify.NewDispatcher(ts, provider, nil, testLogger)
	return &sendFixture{
		handler:   NewSendHandler(dispatcher, 5*time.Second, testLogger),
		provider:  provider,
		users:     us,
		registrar: notify.NewRegistrar(ts, us, testLogger),
	}
}

func (f *sendFixture) send(t *testing.T, admin *model.User, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := asUser(httptest.NewRequest("POST", "/api/send", strings.NewReader(body)), admin)
	rec := httptest.NewRecorder()
	f.handler.Send(rec, req)
	return rec
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) notify.Report {
	t.Helper()
	var r notify.Report
	if err := json.NewDecoder(rec.Body).Decode(&r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return r
}

func TestSendValidation(t *testing.T) {
	f := setupSendHandler(t)
	admin := createUser(t, f.users, "admin@example.com", "pw", model.RoleAdmin)

	longTitle := strings.Repeat("x", 101)
	longBody := strings.Repeat("x", 501)
	cases := []string{
		`not json`,
		`{"body":"b"}`,
		`{"title":"t"}`,
		`{"title":"  ","body":"b"}`,
		fmt.Sprintf(`{"title":%q,"body":"b"}`, longTitle),
		fmt.Sprintf(`{"title":"t","body":%q}`, longBody),
		`{"title":"t","body":"b","image_url":"not a url"}`,
		`{"title":"t","body":"b","image_url":"ftp://x/y.png"}`,
	}
	for _, body := range cases {
		if rec := f.send(t, admin, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %.40q: status = %d, want 400", body, rec.Code)
		}
	}
	if f.provider.calls != 0 {
		t.Errorf("provider called %d times for invalid payloads", f.provider.calls)
	}
}

func TestSendToTargets(t *testing.T) {
	f := setupSendHandler(t)
	admin := createUser(t, f.users, "admin@example.com", "pw", model.RoleAdmin)
	rep := createUser(t, f.users, "rep@example.com", "pw", model.RoleRep)
	other := createUser(t, f.users, "other@example.com", "pw", model.RoleRep)

	f.registrar.Register(rep.ID, "tok-rep", "")
	f.registrar.Register(other.ID, "tok-other", "")

	rec := f.send(t, admin, fmt.Sprintf(`{"user_ids":[%d],"title":"Route updated","body":"Check your visit plan"}`, rep.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	report := decodeReport(t, rec)
	if report.SuccessCount != 1 || report.FailureCount != 0 || report.RemovedCount != 0 {
		t.Errorf("report = %+v", report)
	}
	if f.provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", f.provider.calls)
	}
}

func TestSendPrunesInvalidEndpoint(t *testing.T) {
	f := setupSendHandler(t)
	admin := createUser(t, f.users, "admin@example.com", "pw", model.RoleAdmin)
	rep := createUser(t, f.users, "rep@example.com", "pw", model.RoleRep)

	f.registrar.Register(rep.ID, "tok-live", "")
	f.registrar.Register(rep.ID, "tok-dead", "")
	f.provider.fail["tok-dead"] = fmt.Errorf("gone: %w", notify.ErrInvalidEndpoint)

	rec := f.send(t, admin, `{"title":"t","body":"b"}`)
	report := decodeReport(t, rec)

	if report.SuccessCount != 1 || report.FailureCount != 1 || report.RemovedCount != 1 {
		t.Errorf("report = %+v, want 1/1/1", report)
	}

	// The dead registration is gone, the live one survives.
	mine, err := f.registrar.ListMine(rep.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].Token != "tok-live" {
		t.Errorf("remaining = %+v, want only tok-live", mine)
	}
}

func TestSendBroadcastEmptyStore(t *testing.T) {
	f := setupSendHandler(t)
	admin := createUser(t, f.users, "admin@example.com", "pw", model.RoleAdmin)

	rec := f.send(t, admin, `{"title":"t","body":"b"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	report := decodeReport(t, rec)
	if report.SuccessCount != 0 || report.FailureCount != 0 || report.RemovedCount != 0 {
		t.Errorf("report = %+v, want all zero", report)
	}
	if f.provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0", f.provider.calls)
	}
}

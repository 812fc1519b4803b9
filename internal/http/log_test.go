package handlers_test

import (
	"net/url"
	"testing"

	"invtrack/internal/http/handlers"
)

func TestLoginEventsAreLogged(t *testing.T) {
	a := newTestApp(t, handlers.Options{})
	tok := a.csrf(t)

	entries := captureLogs(t, func() {
		a.form(t, "/login", "", tok, url.Values{"username": {"oper"}, "password": {"wrong-pass"}})
		a.form(t, "/login", "", tok, url.Values{"username": {"oper"}, "password": {"secret1"}})
	})

	fail, ok := findLog(entries, "auth.login.fail")
	if !ok || fail.Level != "warn" {
		t.Fatalf("auth.login.fail missing or wrong level: %+v", entries)
	}
	if fail.Fields["username"] != "oper" {
		t.Fatalf("fail entry fields = %v", fail.Fields)
	}
	if _, leaked := fail.Fields["password"]; leaked {
		t.Fatal("password must never be logged")
	}

	ok2, found := findLog(entries, "auth.login.success")
	if !found || ok2.Level != "audit" || ok2.UserID == "" {
		t.Fatalf("auth.login.success = %+v (found %v)", ok2, found)
	}
	if ok2.ReqID == "" {
		t.Fatal("audit entries should carry the request id")
	}
}

func TestMovementsAreAudited(t *testing.T) {
	a := newTestApp(t, handlers.Options{})
	tok := a.token(t, "oper", "secret1")
	u := createUnit(t, a, tok, "AABBCC000060")

	entries := captureLogs(t, func() {
		move(t, a, tok, u.ID, "OUT", "")
		move(t, a, tok, u.ID, "OUT", "")
	})

	audit, ok := findLog(entries, "equipment.move")
	if !ok || audit.Level != "audit" || audit.UserID == "" {
		t.Fatalf("equipment.move audit = %+v (found %v)", audit, ok)
	}
	if audit.Fields["equipment_id"] != u.ID || audit.Fields["type"] != "OUT" {
		t.Fatalf("audit fields = %v", audit.Fields)
	}

	rej, ok := findLog(entries, "equipment.move.rejected")
	if !ok || rej.Level != "info" || rej.Fields["reason"] != "equipment already deployed" {
		t.Fatalf("equipment.move.rejected = %+v (found %v)", rej, ok)
	}
}

func TestAdminDenialIsSecurityLogged(t *testing.T) {
	a := newTestApp(t, handlers.Options{})
	tok := a.token(t, "oper", "secret1")

	entries := captureLogs(t, func() {
		a.api(t, "GET", "/api/v1/admin/users", tok, nil)
	})
	e, ok := findLog(entries, "access.denied.admin")
	if !ok || e.Level != "warn" || e.UserID == "" {
		t.Fatalf("access.denied.admin = %+v (found %v)", e, ok)
	}
}

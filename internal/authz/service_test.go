package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc
}

func mustAllow(t *testing.T, svc *Service, adminID uint, obj, act string, want bool) {
	t.Helper()
	allow, err := svc.EnforceAdmin(adminID, obj, act)
	if err != nil {
		t.Fatalf("enforce %s %s failed: %v", act, obj, err)
	}
	if allow != want {
		t.Fatalf("enforce %s %s want=%v got=%v", act, obj, want, allow)
	}
}

func TestBuiltinRolesMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap should be idempotent: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	if len(roles) != 4 {
		t.Fatalf("want 4 builtin roles, got %+v", roles)
	}
	for _, role := range roles {
		if role.Role != "role:readonly_auditor" && (len(role.Inherits) != 1 || role.Inherits[0] != "role:readonly_auditor") {
			t.Fatalf("%s should inherit readonly_auditor, got %v", role.Role, role.Inherits)
		}
	}

	if _, err := svc.SetAdminRoles(1, []string{RoleSupport}); err != nil {
		t.Fatalf("set support failed: %v", err)
	}
	mustAllow(t, svc, 1, "/api/v1/admin/tickets", "GET", true)
	mustAllow(t, svc, 1, "/api/v1/admin/tickets/ABC-DEF-2345/reply", "post", true)
	mustAllow(t, svc, 1, "/api/v1/admin/tickets/ABC-DEF-2345/close", "PATCH", true)
	mustAllow(t, svc, 1, "/api/v1/admin/applications/3/status", "PUT", false)
	mustAllow(t, svc, 1, "/api/v1/admin/posts/3", "DELETE", false)

	if _, err := svc.SetAdminRoles(2, []string{"Recruiter"}); err != nil {
		t.Fatalf("set recruiter failed: %v", err)
	}
	mustAllow(t, svc, 2, "/api/v1/admin/applications/3/status", "PUT", true)
	mustAllow(t, svc, 2, "/api/v1/admin/quiz/attempts", "GET", true)
	mustAllow(t, svc, 2, "/api/v1/admin/contacts/3", "DELETE", false)

	mustAllow(t, svc, 9, "/api/v1/admin/tickets", "GET", false)
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)

	if _, err := svc.SetAdminRoles(2, []string{RoleModerator}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.SetAdminRoles(2, []string{RoleRecruiter})
	if err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:recruiter" {
		t.Fatalf("roles want [role:recruiter], got=%v", roles)
	}
	mustAllow(t, svc, 2, "/admin/posts/1", "DELETE", false)

	if _, err := svc.SetAdminRoles(2, []string{"ghost"}); !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("unknown role should be rejected, got %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil || len(roles) != 1 {
		t.Fatalf("failed update must keep roles, got %v %v", roles, err)
	}

	if _, err := svc.SetAdminRoles(2, nil); err != nil {
		t.Fatalf("clear roles failed: %v", err)
	}
	mustAllow(t, svc, 2, "/admin/applications", "GET", false)
}

func TestNormalizeObjectAndRole(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/tickets/:id", want: "/admin/tickets/:id"},
		{in: "/admin/tickets/:id", want: "/admin/tickets/:id"},
		{in: "admin/contacts", want: "/admin/contacts"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		if got := NormalizeObject(item.in); got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}

	if role, err := NormalizeRole(" Readonly Auditor "); err != nil || role != "role:readonly_auditor" {
		t.Fatalf("normalize role: %q %v", role, err)
	}
	if _, err := NormalizeRole("__anchor__"); !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("anchor role must be reserved, got %v", err)
	}
}

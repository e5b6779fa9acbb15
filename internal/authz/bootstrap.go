package authz

import "fmt"

// 预置角色名
const (
	RoleReadonlyAuditor = "readonly_auditor"
	RoleSupport         = "support"
	RoleRecruiter       = "recruiter"
	RoleModerator       = "moderator"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置角色矩阵，写操作角色均继承只读审计
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:     RoleReadonlyAuditor,
			Policies: []Policy{{Object: "/admin/*", Action: "GET"}},
		},
		{
			Role:     RoleSupport,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/tickets/:id/reply", Action: "POST"},
				{Object: "/admin/tickets/:id/close", Action: "PATCH"},
				{Object: "/admin/contacts/:id/status", Action: "PUT"},
				{Object: "/admin/contacts/:id", Action: "DELETE"},
			},
		},
		{
			Role:     RoleRecruiter,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/applications/:id/status", Action: "PUT"},
			},
		},
		{
			Role:     RoleModerator,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/posts/:id", Action: "DELETE"},
			},
		},
	}
}

// BootstrapBuiltinRoles 幂等写入预置角色、继承关系与策略
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy for %s failed: %w", seed.Role, err)
			}
		}
	}
	return nil
}

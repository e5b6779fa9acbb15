package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/swiftmeta/internal/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	authStateCacheTTL   = 10 * time.Minute
	localRevokedMaxSize = 10000
	localRevokedMaxTTL  = time.Hour
)

// AdminAuthState 管理员鉴权快照
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"` // Unix 秒，0 表示未设置
	IsSuper            bool   `json:"is_super"`
	UpdatedAt          int64  `json:"updated_at"`
}

func adminAuthStateKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d", adminID)
}

func revokedTokenKey(jti string) string {
	return "auth:revoked:" + strings.TrimSpace(jti)
}

// BuildAdminAuthState 从管理员模型构建鉴权快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		IsSuper:      admin.IsSuper,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// GetAdminAuthState 获取管理员鉴权快照
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAdminAuthState 写入管理员鉴权快照
func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, adminAuthStateKey(state.AdminID), state, authStateCacheTTL)
}

// DelAdminAuthState 删除管理员鉴权快照
func DelAdminAuthState(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return nil
	}
	return Del(ctx, adminAuthStateKey(adminID))
}

var (
	localRevokedOnce sync.Once
	localRevoked     *expirable.LRU[string, struct{}]
)

func localRevokedCache() *expirable.LRU[string, struct{}] {
	localRevokedOnce.Do(func() {
		localRevoked = expirable.NewLRU[string, struct{}](localRevokedMaxSize, nil, localRevokedMaxTTL)
	})
	return localRevoked
}

// MarkTokenRevoked 缓存已注销的 jti，ttl 为 Token 剩余有效期。
// Redis 未启用时写入进程内 LRU。
func MarkTokenRevoked(ctx context.Context, jti string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" || ttl <= 0 {
		return nil
	}
	if Enabled() {
		return SetString(ctx, revokedTokenKey(jti), "1", ttl)
	}
	localRevokedCache().Add(jti, struct{}{})
	return nil
}

// IsTokenRevokedCached 查询缓存，hit=false 时需回源数据库
func IsTokenRevokedCached(ctx context.Context, jti string) (revoked bool, hit bool, err error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, false, nil
	}
	if Enabled() {
		exists, err := Exists(ctx, revokedTokenKey(jti))
		if err != nil {
			return false, false, err
		}
		return exists, exists, nil
	}
	if _, ok := localRevokedCache().Get(jti); ok {
		return true, true, nil
	}
	return false, false, nil
}

// ResetLocalRevoked 清空进程内缓存
func ResetLocalRevoked() {
	localRevokedCache().Purge()
}

package router

import (
	"sort"

	"ajeu-backend/internal/transport/http/ez"
)

// APIModule 在 /api 下挂载；public 无需登录，authed 已走 AuthJWT
type APIModule interface{ MountAPI(public, authed ez.EZ) }

// AdminModule 在 /admin/v1 下挂载，分组要求 ROLE_ADMIN
type AdminModule interface{ MountAdmin(admin ez.EZ) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Registry 收集模块；每个 engine 持有自己的一份，不用全局变量
type Registry struct {
	api   []APIModule
	admin []AdminModule
}

// Register 根据类型断言分发到 API/Admin 列表，一个模块可以同时实现两者
func (r *Registry) Register(mods ...any) {
	for _, mod := range mods {
		if m, ok := mod.(APIModule); ok {
			r.api = append(r.api, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.admin = append(r.admin, m)
		}
	}
}

func (r *Registry) MountAPI(public, authed ez.EZ) {
	mods := append([]APIModule(nil), r.api...)
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	for _, m := range mods {
		m.MountAPI(public, authed)
	}
}

func (r *Registry) MountAdmin(admin ez.EZ) {
	mods := append([]AdminModule(nil), r.admin...)
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	for _, m := range mods {
		m.MountAdmin(admin)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}

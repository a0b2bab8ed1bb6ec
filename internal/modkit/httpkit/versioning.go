package httpkit

import "net/http"

// APIV1 is the prefix every module route lives under
const APIV1 = "/api/v1"

// MountAPIV1 opens the /api/v1 scope, applies mw to it and hands it to mount
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route(APIV1, func(api Router) {
		if len(mw) > 0 {
			api.Use(mw...)
		}
		mount(api)
	})
}

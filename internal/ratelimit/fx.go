package ratelimit

import (
	"github.com/smallbiznis/orgadmin/internal/ratelimit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ratelimit.service",
	fx.Provide(service.New),
)

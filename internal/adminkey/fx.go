package adminkey

import (
	"github.com/smallbiznis/orgadmin/internal/adminkey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("adminkey.service",
	fx.Provide(service.New),
)

package projectuser

import (
	"github.com/smallbiznis/orgadmin/internal/projectuser/service"
	"go.uber.org/fx"
)

var Module = fx.Module("projectuser.service",
	fx.Provide(service.New),
)

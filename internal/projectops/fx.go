package projectops

import (
	"github.com/smallbiznis/orgadmin/internal/projectops/service"
	"go.uber.org/fx"
)

var Module = fx.Module("projectops.service",
	fx.Provide(service.New),
)

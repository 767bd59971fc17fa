package serviceaccount

import (
	"github.com/smallbiznis/orgadmin/internal/serviceaccount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("serviceaccount.service",
	fx.Provide(service.New),
)

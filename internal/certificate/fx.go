package certificate

import (
	"github.com/smallbiznis/orgadmin/internal/certificate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("certificate.service",
	fx.Provide(service.New),
)

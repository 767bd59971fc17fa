package invitation

import (
	"github.com/smallbiznis/orgadmin/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(service.New),
)

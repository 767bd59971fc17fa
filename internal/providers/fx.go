package providers

import (
	"github.com/smallbiznis/orgadmin/internal/providers/email"
	"github.com/smallbiznis/orgadmin/internal/providers/mattermost"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	mattermost.Module,
)

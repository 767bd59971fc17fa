package cli

import (
	"github.com/smallbiznis/orgadmin/internal/adminkey"
	adminkeydomain "github.com/smallbiznis/orgadmin/internal/adminkey/domain"
	"github.com/smallbiznis/orgadmin/internal/apikey"
	apikeydomain "github.com/smallbiznis/orgadmin/internal/apikey/domain"
	"github.com/smallbiznis/orgadmin/internal/audit"
	auditdomain "github.com/smallbiznis/orgadmin/internal/audit/domain"
	"github.com/smallbiznis/orgadmin/internal/certificate"
	certificatedomain "github.com/smallbiznis/orgadmin/internal/certificate/domain"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/clock"
	"github.com/smallbiznis/orgadmin/internal/config"
	"github.com/smallbiznis/orgadmin/internal/invitation"
	invitationdomain "github.com/smallbiznis/orgadmin/internal/invitation/domain"
	"github.com/smallbiznis/orgadmin/internal/notify"
	notifydomain "github.com/smallbiznis/orgadmin/internal/notify/domain"
	"github.com/smallbiznis/orgadmin/internal/observability"
	"github.com/smallbiznis/orgadmin/internal/observability/metrics"
	"github.com/smallbiznis/orgadmin/internal/project"
	projectdomain "github.com/smallbiznis/orgadmin/internal/project/domain"
	"github.com/smallbiznis/orgadmin/internal/projectops"
	projectopsdomain "github.com/smallbiznis/orgadmin/internal/projectops/domain"
	"github.com/smallbiznis/orgadmin/internal/projectuser"
	projectuserdomain "github.com/smallbiznis/orgadmin/internal/projectuser/domain"
	"github.com/smallbiznis/orgadmin/internal/providers"
	"github.com/smallbiznis/orgadmin/internal/ratelimit"
	ratelimitdomain "github.com/smallbiznis/orgadmin/internal/ratelimit/domain"
	"github.com/smallbiznis/orgadmin/internal/rotation"
	rotationdomain "github.com/smallbiznis/orgadmin/internal/rotation/domain"
	"github.com/smallbiznis/orgadmin/internal/serviceaccount"
	serviceaccountdomain "github.com/smallbiznis/orgadmin/internal/serviceaccount/domain"
	"github.com/smallbiznis/orgadmin/internal/usage"
	usagedomain "github.com/smallbiznis/orgadmin/internal/usage/domain"
	"github.com/smallbiznis/orgadmin/internal/user"
	userdomain "github.com/smallbiznis/orgadmin/internal/user/domain"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Container holds everything a command may need.
type Container struct {
	fx.In

	Config         config.Config
	Log            *zap.Logger
	Clock          clock.Clock
	Metrics        *metrics.Metrics     `optional:"true"`
	TracerProvider trace.TracerProvider `optional:"true"`

	AdminKeys       adminkeydomain.Service
	Invites         invitationdomain.Service
	Users           userdomain.Service
	Projects        projectdomain.Service
	ProjectUsers    projectuserdomain.Service
	ServiceAccounts serviceaccountdomain.Service
	APIKeys         apikeydomain.Service
	RateLimits      ratelimitdomain.Service
	Audit           auditdomain.Service
	Usage           usagedomain.Service
	Certificates    certificatedomain.Service
	Notifier        notifydomain.Service
	ProjectOps      projectopsdomain.Service
	Rotation        rotationdomain.Service
}

// modules is the full application graph in dependency order.
func modules() []fx.Option {
	return []fx.Option{
		// Core Infrastructure
		config.Module,
		observability.Module,
		clock.Module,
		client.Module,
		providers.Module,

		// Functional Domains
		adminkey.Module,
		invitation.Module,
		user.Module,
		project.Module,
		projectuser.Module,
		serviceaccount.Module,
		apikey.Module,
		ratelimit.Module,
		audit.Module,
		usage.Module,
		certificate.Module,
		notify.Module,

		// Workflows
		projectops.Module,
		rotation.Module,
	}
}

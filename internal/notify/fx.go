package notify

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orgadmin/internal/notify/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notify.service",
	fx.Provide(NewNode),
	fx.Provide(service.New),
)

// NewNode returns the snowflake node used for delivery ids.
func NewNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

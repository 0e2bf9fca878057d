package root

import (
	"github.com/zenGate-Global/clubportal/apps/cli/backend"
	"github.com/zenGate-Global/clubportal/apps/cli/cmd/auth"
	"github.com/zenGate-Global/clubportal/apps/cli/cmd/bootstrap"
	tenantcmd "github.com/zenGate-Global/clubportal/apps/cli/cmd/tenant"
)

var (
	flags   backend.Flags
	wireErr error
)

func init() {
	wireErr = flags.Bind(Root())

	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command(flags.Open))
	Root().AddCommand(tenantcmd.Command(flags.Open))
}

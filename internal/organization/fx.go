package organization

import (
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("organization",
	fx.Provide(repository.Provide),
)

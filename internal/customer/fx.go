package customer

import (
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("customer",
	fx.Provide(repository.Provide),
)

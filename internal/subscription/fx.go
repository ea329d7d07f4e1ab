package subscription

import (
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription",
	fx.Provide(repository.Provide),
)

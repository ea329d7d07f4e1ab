package snapshot

import (
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/repository"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/service"
	"go.uber.org/fx"
)

var Module = fx.Module("snapshot",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

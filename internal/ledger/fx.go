package ledger

import (
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/repository"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

package community

import (
	"github.com/pressroomhq/commune/internal/community/repository"
	"github.com/pressroomhq/commune/internal/community/service"
	"go.uber.org/fx"
)

var Module = fx.Module("community.lifecycle",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)

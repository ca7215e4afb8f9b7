package user

import (
	"github.com/pressroomhq/commune/internal/user/repository"
	"github.com/pressroomhq/commune/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.directory",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewDirectory),
)

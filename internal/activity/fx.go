package activity

import (
	"github.com/pressroomhq/commune/internal/activity/repository"
	"github.com/pressroomhq/commune/internal/activity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.recorder",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewRecorder),
)

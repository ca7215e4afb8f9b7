package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	activitydomain "github.com/pressroomhq/commune/internal/activity/domain"
	communitydomain "github.com/pressroomhq/commune/internal/community/domain"
	"github.com/pressroomhq/commune/internal/config"
	userdomain "github.com/pressroomhq/commune/internal/user/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned migrations target postgres; dev databases on
			// mysql/sqlite take the schema straight from the models.
			return conn.AutoMigrate(
				&communitydomain.Community{},
				&communitydomain.Member{},
				&communitydomain.Follower{},
				&communitydomain.JoinRequest{},
				&communitydomain.AuthorizedPerson{},
				&communitydomain.Invite{},
				&userdomain.User{},
				&userdomain.UserCommunity{},
				&activitydomain.Entry{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)

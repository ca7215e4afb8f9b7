package main

import (
	"go.uber.org/fx"

	"github.com/bwmarrin/snowflake"
	"github.com/pressroomhq/commune/internal/clock"
	"github.com/pressroomhq/commune/internal/config"
	"github.com/pressroomhq/commune/internal/migration"
	"github.com/pressroomhq/commune/internal/observability"
	"github.com/pressroomhq/commune/internal/server"
	"github.com/pressroomhq/commune/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

package repository

import (
	"opsboard/internal/rawstore"

	"github.com/google/wire"
)

// Wire 依賴提供
var ProviderSet = wire.NewSet(
	NewMongoStore,
	wire.Bind(new(rawstore.Store), new(*MongoStore)),
)

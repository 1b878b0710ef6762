package order

import (
	"go.uber.org/fx"

	repo "github.com/bazaarlabs/bazaar/internal/repository/order"
)

// Module provides the order service to Fx, binding the bun-backed repository
// as its Store.
var Module = fx.Options(
	fx.Provide(func(r *repo.Repository) Store { return r }),
	fx.Provide(NewService),
)

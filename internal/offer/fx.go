package offer

import (
	"github.com/kraalhq/kraal/internal/offer/repository"
	"github.com/kraalhq/kraal/internal/offer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("offer.service",
	fx.Provide(
		repository.New,
		service.NewService,
	),
)

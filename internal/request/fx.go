package request

import (
	"github.com/kraalhq/kraal/internal/request/repository"
	"github.com/kraalhq/kraal/internal/request/service"
	"go.uber.org/fx"
)

var Module = fx.Module("request.service",
	fx.Provide(
		repository.New,
		service.NewService,
	),
)

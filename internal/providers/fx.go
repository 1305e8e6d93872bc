package providers

import (
	"github.com/kraalhq/kraal/internal/providers/pdf"
	"github.com/kraalhq/kraal/internal/providers/redis"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	redis.Module,
	pdf.Module,
)

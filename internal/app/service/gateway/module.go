package gateway

import "go.uber.org/fx"

// Module exposes the provider gateways via Fx.
var Module = fx.Options(
	fx.Provide(NewPushinPay),
	fx.Provide(NewSyncPay),
	fx.Provide(NewRegistry),
)

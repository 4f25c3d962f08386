package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/maiavyxen-hub/telapriv/internal/app/api/server"
	"github.com/maiavyxen-hub/telapriv/internal/app/service/gateway"
	"github.com/maiavyxen-hub/telapriv/internal/app/service/notify"
	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/internal/app/service/webhook"
	"github.com/maiavyxen-hub/telapriv/internal/app/service/webhooklog"
	"github.com/maiavyxen-hub/telapriv/internal/platform/db"
	"github.com/maiavyxen-hub/telapriv/internal/platform/kv"
	"github.com/maiavyxen-hub/telapriv/pkg/config"
	"github.com/maiavyxen-hub/telapriv/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	kv.Module,
	server.Module,
	gateway.Module,
	payments.Module,
	notify.Module,
	webhooklog.Module,
	webhook.Module,
)

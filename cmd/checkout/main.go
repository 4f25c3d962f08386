// The checkout agent drives a PIX purchase from a terminal: it creates the
// charge, presents the QR code, polls until the payment resolves and prints
// the confirmation redirect. It can also answer whether a previous purchase
// still grants access.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/internal/checkout/access"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/client"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/localstore"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/poller"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/qr"
	cfgpkg "github.com/maiavyxen-hub/telapriv/pkg/config"
	"github.com/maiavyxen-hub/telapriv/pkg/logger"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

func main() {
	valor := flag.Float64("valor", 0, "charge amount in reais (starts a new checkout)")
	plano := flag.String("plano", "Não especificado", "plan label for the charge")
	check := flag.String("check", "", "check access for a transaction id instead of buying")
	qrPath := flag.String("qr", "pix-qr.png", "where to write the QR image")
	flag.Parse()

	log, err := logger.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := cfgpkg.New()
	if err != nil {
		log.Fatalw("loading config failed", "error", err)
	}

	api := client.New(cfg.Checkout.APIBaseURL, types.PaymentProvider(cfg.Checkout.Provider), log)

	store, err := localstore.Open(cfg.Checkout.StorePath)
	if err != nil {
		log.Fatalw("opening local store failed", "path", cfg.Checkout.StorePath, "error", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *check != "" || *valor <= 0 {
		runAccessCheck(ctx, api, store, log, *check)
		return
	}
	runCheckout(ctx, cfg, api, store, log, *valor, *plano, *qrPath)
}

func runAccessCheck(ctx context.Context, api *client.Client, store *localstore.Store, log *zap.SugaredLogger, transactionID string) {
	checker := access.NewChecker(api, store, log)
	ok, rec, err := checker.Check(ctx, transactionID)
	if err != nil {
		log.Fatalw("access check failed", "error", err)
	}
	if !ok {
		fmt.Println("Sem acesso. Nenhum pagamento confirmado encontrado.")
		os.Exit(1)
	}
	fmt.Printf("Acesso liberado: transação %s, valor R$ %s\n",
		rec.TransactionID, types.FormatBRL(types.CentavosFromReais(rec.Value)))
}

func runCheckout(ctx context.Context, cfg *cfgpkg.Config, api *client.Client, store *localstore.Store, log *zap.SugaredLogger, valor float64, plano, qrPath string) {
	fmt.Println("Gerando pagamento...")
	charge, err := api.CreatePix(ctx, valor, plano)
	if err != nil {
		log.Fatalw("creating charge failed", "error", err)
	}
	log.Infow("charge created", "transaction_id", charge.Identifier, "amount", charge.Amount)

	res, err := qr.NewRenderer(log).Render(ctx, charge.QRCode, charge.PixCode)
	if err != nil {
		log.Fatalw("charge has no usable pix payload", "transaction_id", charge.Identifier)
	}
	presentCharge(res, qrPath, log)

	p := poller.New(poller.Config{
		Interval:    cfg.Checkout.PollInterval,
		MinInterval: cfg.Checkout.PollInterval,
		MaxAttempts: cfg.Checkout.MaxAttempts,
	}, api, store, api, log)

	if err := p.Start(ctx, poller.Charge{
		TransactionID: charge.Identifier,
		ValueReais:    valor,
		PlanLabel:     plano,
	}); err != nil {
		log.Fatalw("starting poll session failed", "error", err)
	}
	defer p.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println(poller.TextStopped)
			return
		case ev := <-p.Events():
			if ev.StatusText != "" {
				fmt.Println(ev.StatusText)
			}
			if ev.RedirectURL != "" {
				fmt.Printf("Abra: %s%s\n", cfg.Checkout.APIBaseURL, ev.RedirectURL)
				return
			}
			if ev.State == poller.StateCanceled || ev.State == poller.StateTimedOut {
				return
			}
		}
	}
}

func presentCharge(res *qr.Result, qrPath string, log *zap.SugaredLogger) {
	if len(res.PNG) > 0 {
		if err := os.WriteFile(qrPath, res.PNG, 0644); err != nil {
			log.Warnw("writing QR image failed", "path", qrPath, "error", err)
		} else {
			fmt.Printf("QR code salvo em %s\n", qrPath)
		}
	}
	if res.CopyText != "" {
		fmt.Println("PIX copia e cola:")
		fmt.Println(res.CopyText)
	} else if len(res.PNG) == 0 {
		fmt.Println("Escaneie o QR code no aplicativo do seu banco.")
	}
}

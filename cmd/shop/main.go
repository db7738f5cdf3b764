// cmd/shop/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/storefront/admin"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/cart"
	"github.com/your-org/storefront/internal/storefront/notice"
	"github.com/your-org/storefront/internal/storefront/payment"
	"github.com/your-org/storefront/internal/storefront/session"
	"github.com/your-org/storefront/internal/storefront/shell"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		logger.New(config.LoggingConfig{Level: "info", Format: "text"}).Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)
	log.Debugf("🛒 Shop client talking to %s (payments: %s)", cfg.Client.APIBaseURL, cfg.Client.PaymentProvider)

	client, err := api.NewFromConfig(cfg, log)
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	processor, err := payment.NewProcessor(cfg, client, log)
	if err != nil {
		log.Fatalf("Failed to configure payment processor: %v", err)
	}
	if !processor.Ready() {
		log.Warn("Payment processor is not configured, checkout is disabled")
	}

	notices := notice.NewBoard()
	sess := session.NewContext(client, notices, log)
	cards := payment.NewTokenSource(cfg.Client.DefaultCard)
	carts := cart.NewManager(client, sess, processor, cards, notices, cart.OptionsFromConfig(cfg), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh := shell.New(shell.Deps{
		Session: sess,
		Cart:    carts,
		Admin:   admin.NewConsole(client, sess, notices, log),
		Catalog: client,
		Cards:   cards,
		Notices: notices,
		Nav:     shell.NewNavBar(client, sess, carts, log),
		Router:  shell.NewRouter(sess),
		Log:     log,
	}, os.Stdin, os.Stdout)

	if err := sh.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Shell stopped: %v", err)
	}

	if pending := carts.Pending(); len(pending) > 0 {
		log.Warnf("⚠️ %d payment(s) still waiting for order confirmation: %v", len(pending), pending)
	}
}

package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"autotrader/internal/config"
	"autotrader/internal/engine"
	"autotrader/internal/gateway"
	"autotrader/internal/ledger"
	"autotrader/internal/logger"
	"autotrader/internal/market"
	"autotrader/internal/push"
	"autotrader/internal/store"
	"autotrader/internal/wallet"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})

	log.Info("trader starting")

	st, err := store.New(cfg.Runtime.DataDir)
	if err != nil {
		log.WithError(err).Fatal("state directory unavailable")
	}

	keystore, err := wallet.New(st, wallet.Bip39Deriver{})
	if err != nil {
		log.WithError(err).Fatal("wallet load failed")
	}

	feed := market.NewFeed(market.NewClient(cfg.Feed.BaseURL, log), cfg.Feed.DailyTTL, cfg.Feed.IntradayTTL, log)
	gw := gateway.New(cfg.Aggregator.SwapBaseURL, keystore, cfg.Aggregator.SlippageBps, cfg.Aggregator.ConfirmTimeout, log)
	perps := gateway.NewRESTPerps(cfg.Aggregator.PerpsBaseURL, keystore, cfg.Aggregator.ConfirmTimeout, log)

	book, err := ledger.New(st)
	if err != nil {
		log.WithError(err).Fatal("position ledger load failed")
	}

	bus := engine.NewBus()

	trader, err := engine.New(engine.Config{
		UserID:          "default",
		Pair:            cfg.Trader.Pair,
		QuoteToken:      cfg.Feed.QuoteToken,
		TickInterval:    cfg.Trader.TickInterval,
		SellAllFraction: cfg.Trader.SellAllFraction,
		SwapFraction:    cfg.Trader.SwapFraction,
		StatusTimeout:   cfg.Trader.StatusTimeout,
		AutoPerps:       cfg.Trader.AutoPerps,
		Perps: engine.PerpsConfig{
			Leverage:        cfg.Trader.PerpsLeverage,
			BalanceFraction: cfg.Trader.PerpsBalanceFrac,
			MinCollateral:   cfg.Trader.PerpsMinCollateral,
			MaxCollateral:   cfg.Trader.PerpsMaxCollateral,
			MaxOpen:         cfg.Trader.PerpsMaxOpen,
			TakeProfitROI:   cfg.Trader.PerpsTakeProfitROI,
			StopLossROI:     cfg.Trader.PerpsStopLossROI,
		},
	}, feed, gw, perps, book, keystore, st, bus, log)
	if err != nil {
		log.WithError(err).Fatal("trader init failed")
	}

	hub := push.NewHub(bus, log)
	go hub.Run()

	if cfg.Runtime.PushListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		go func() {
			log.WithFields(logrus.Fields{"listen": cfg.Runtime.PushListen}).Info("push server listening")
			if err := http.ListenAndServe(cfg.Runtime.PushListen, mux); err != nil {
				log.WithError(err).Error("push server stopped")
			}
		}()
	}

	trader.Start()

	<-sigCh

	trader.Stop()
	hub.Stop()

	log.Info("trader stopped")
}

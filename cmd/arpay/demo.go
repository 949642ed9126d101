package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vitwit/arpay"
	"github.com/vitwit/arpay/clients"
	"github.com/vitwit/arpay/ledger"
	"github.com/vitwit/arpay/lifecycle"
	"github.com/vitwit/arpay/metrics"
	"github.com/vitwit/arpay/types"
)

var (
	demoListen   string
	demoInterval time.Duration
	demoPay      bool
	demoReq      types.PaymentRequest
)

func init() {
	f := demoCmd.Flags()
	f.StringVar(&demoListen, "listen", ":9464", "metrics listen address")
	f.DurationVar(&demoInterval, "interval", 10*time.Second, "time between generated QRs")
	f.BoolVar(&demoPay, "pay", false, "scan and pay every QR with the configured wallet")
	f.StringVar(&demoReq.RecipientAddress, "recipient", "", "recipient address")
	f.StringVar(&demoReq.Amount, "amount", "0.01", "decimal amount")
	f.StringVar(&demoReq.TokenSymbol, "token", "", "token symbol")
	f.IntVar(&demoReq.Decimals, "decimals", 18, "token decimals")
	f.StringVar((*string)(&demoReq.DestinationChainID), "chain", "", "destination chain id")
	f.StringVar((*string)(&demoReq.SourceChainID), "source", "", "payer chain id, empty for same-chain")
	_ = demoCmd.MarkFlagRequired("recipient")
	_ = demoCmd.MarkFlagRequired("chain")
	rootCmd.AddCommand(demoCmd)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Generate payment QRs in a loop and expose lifecycle metrics",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		reg := prometheus.NewRegistry()
		recorder := metrics.NewPrometheusRecorder(reg)

		store, closeStore, err := openLedger(ctx, conf.Ledger)
		if err != nil {
			return
		}
		defer closeStore()

		ar, err := arpay.New(conf, store, arpay.WithLogger(log), arpay.WithMetrics(recorder))
		if err != nil {
			return
		}
		defer ar.Close()
		ar.Start(ctx)

		ar.Subscribe(lifecycle.Listener{
			OnResolved: func(qr types.QRObject) {
				log.Info("qr resolved", map[string]any{"qr_id": qr.ID, "status": qr.Status, "reason": qr.FailureReason})
			},
		})

		var wallet clients.WalletProvider
		if demoPay {
			wallet, err = dialWallet(ctx, ar, demoReq.Source())
			if err != nil {
				return
			}
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: demoListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", map[string]any{"error": err})
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()

		ticker := time.NewTicker(demoInterval)
		defer ticker.Stop()
		for attempt := 0; ; attempt++ {
			runDemoRound(ar, wallet, attempt)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func runDemoRound(ar *arpay.ARPay, wallet clients.WalletProvider, attempt int) {
	req := demoReq
	req.AgentID = "demo-agent"
	if req.TokenSymbol == "" {
		if d := ar.Registry().Get(req.DestinationChainID); d != nil {
			req.TokenSymbol = d.NativeSymbol
		}
	}

	qr, err := ar.CreatePaymentQR(req, lifecycle.Placement{
		Agent:   types.Vec3{Y: 1.2},
		Viewer:  types.Vec3{Y: 1.6, Z: 2.5},
		Attempt: attempt,
	})
	if err != nil {
		log.Error("failed to create qr", map[string]any{"error": err})
		return
	}
	log.Info("qr created", map[string]any{"qr_id": qr.ID, "payload": qr.Payload, "strategy": qr.Anchor.Strategy})

	if wallet == nil {
		return
	}
	if _, err := ar.Scan(qr.ID); err != nil {
		log.Warn("scan failed", map[string]any{"qr_id": qr.ID, "error": err})
		return
	}
	res, err := ar.Pay(ctx, qr.ID, wallet, conf.DefaultFeeToken)
	if res != nil {
		log.Info("payment finished", map[string]any{"qr_id": qr.ID, "status": res.Status, "tx_ref": res.TxRef, "message": res.UserMessage()})
	} else if err != nil {
		log.Warn("payment not attempted", map[string]any{"qr_id": qr.ID, "error": err})
	}
}

func openLedger(ctx context.Context, cfg types.LedgerConfig) (ledger.Ledger, func(), error) {
	if cfg.Driver != "redis" {
		return ledger.NewMemory(), func() {}, nil
	}
	store, err := ledger.NewRedisFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// dialWallet builds a wallet for chainID from the clients section of the
// config.
func dialWallet(ctx context.Context, ar *arpay.ARPay, chainID types.ChainID) (clients.WalletProvider, error) {
	cc, ok := conf.Clients[chainID]
	if !ok {
		return nil, types.NewError(types.ErrConfigError, "no client configured for %s", chainID)
	}
	d, err := ar.Registry().MustGet(chainID)
	if err != nil {
		return nil, err
	}

	switch d.Family {
	case types.ChainEVM:
		w, err := clients.NewEVMWallet(cc.PrivateKey)
		if err != nil {
			return nil, err
		}
		dialCtx := ctx
		if cc.Timeout > 0 {
			var done context.CancelFunc
			dialCtx, done = context.WithTimeout(ctx, cc.Timeout)
			defer done()
		}
		if err := w.Dial(dialCtx, chainID, d.NumericChainID, cc.RPCUrl); err != nil {
			return nil, err
		}
		log.Info("evm wallet ready", map[string]any{"chain": chainID, "address": w.Address().Hex()})
		return w, nil
	default:
		w, err := clients.NewSolanaWallet(cc.PrivateKey)
		if err != nil {
			return nil, err
		}
		w.Dial(chainID, cc.RPCUrl)
		log.Info("solana wallet ready", map[string]any{"chain": chainID, "address": w.PublicKey().String()})
		return w, nil
	}
}

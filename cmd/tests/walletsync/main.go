// Command walletsync drives a headless checkout page against a backend and
// prints every wallet state transition. With -stub it starts its own backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/rifasite/checkout/internal/buyer"
	"github.com/rifasite/checkout/internal/config"
	cerrors "github.com/rifasite/checkout/internal/errors"
	"github.com/rifasite/checkout/internal/logger"
	"github.com/rifasite/checkout/internal/wallet"
	"github.com/rifasite/checkout/pkg/checkout"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml (optional)")
	envFile := flag.String("env", ".env", "dotenv file to load if present")
	stub := flag.Bool("stub", false, "start a built-in stub backend")
	stubLatency := flag.Duration("stub-latency", 300*time.Millisecond, "stub preference latency")
	stubFail := flag.Int("stub-fail", 0, "number of initial preference requests the stub rejects")
	numbers := flag.String("numbers", "3,7", "comma separated numbers to select")
	amount := flag.String("amount", "", "donation amount; switches to the donation page")
	name := flag.String("name", "Ana", "buyer name")
	email := flag.String("email", "ana@x.com", "buyer email")
	reserve := flag.Bool("reserve", false, "reserve the selection by transfer after mounting")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("load %s: %v", *envFile, err)
	}

	if *stub {
		s, err := startStub(*stubLatency, *stubFail)
		if err != nil {
			log.Fatalf("start stub: %v", err)
		}
		defer s.Close()
		os.Setenv("CHECKOUT_SERVER_BASE_URL", s.url)
		if os.Getenv("CHECKOUT_MP_PUBLIC_KEY") == "" {
			os.Setenv("CHECKOUT_MP_PUBLIC_KEY", "TEST-stub")
		}
		fmt.Println("stub backend listening on", s.url)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      "console",
		Service:     "walletsync",
		Version:     checkout.Version,
		Environment: cfg.Logging.Environment,
	})

	kind := checkout.KindRaffle
	if *amount != "" {
		kind = checkout.KindDonation
	}

	app, err := checkout.New(cfg,
		checkout.WithKind(kind),
		checkout.WithLogger(zl),
		checkout.WithWidget(&printWidget{logger: zl}),
		checkout.WithStatusCallback(func(st wallet.Status) {
			line := fmt.Sprintf("status: %s", st.State)
			if st.Err != nil {
				line += fmt.Sprintf(" (%s)", cerrors.CodeOf(st.Err))
			}
			fmt.Println(line)
		}),
	)
	if err != nil {
		log.Fatalf("init checkout: %v", err)
	}
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	if kind == checkout.KindDonation {
		app.Donation.SetBuyerField(buyer.FieldName, *name)
		app.Donation.SetBuyerField(buyer.FieldEmail, *email)
		app.Donation.SetAmount(*amount)
	} else {
		for _, n := range parseNumbers(*numbers) {
			app.Selection.Toggle(n)
		}
		app.Selection.SetBuyerField(buyer.FieldName, *name)
		app.Selection.SetBuyerField(buyer.FieldEmail, *email)
	}
	app.Wallet.Wait()

	sig, mounted := app.Wallet.AppliedSignature()
	fmt.Printf("final state: %s mounted=%v signature=%s\n", app.Wallet.State(), mounted, logger.TruncateID(sig))

	if *reserve && app.Transfer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		conf, err := app.Transfer.ReserveByTransfer(ctx)
		if err != nil {
			if cerrors.CodeOf(err).IsValidation() {
				log.Fatalf("reserve: invalid input: %v", err)
			}
			log.Fatalf("reserve: %v", err)
		}
		fmt.Println(conf.Message)
		app.Wallet.Wait()
		fmt.Println("after reservation:", app.Wallet.State())
	}
}

func parseNumbers(raw string) []int {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

// printWidget stands in for the browser widget.
type printWidget struct {
	logger zerolog.Logger
	seq    atomic.Int32
}

func (w *printWidget) Mount(ctx context.Context, containerID, preferenceID string) (wallet.Handle, error) {
	n := w.seq.Add(1)
	lg := logger.FromContext(ctx)
	lg.Debug().Int32("mount", n).Msg("walletsync.mount")
	fmt.Printf("mount #%d in %s: %s\n", n, containerID, preferenceID)
	return printHandle{n: n}, nil
}

func (w *printWidget) Reset(containerID string) {
	w.logger.Debug().Str("container_id", containerID).Msg("walletsync.placeholder")
}

type printHandle struct{ n int32 }

func (h printHandle) Unmount() error {
	fmt.Printf("unmount #%d\n", h.n)
	return nil
}

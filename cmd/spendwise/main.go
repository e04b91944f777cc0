// Command spendwise is the finance tracker CLI. It opens the local store,
// starts the sync engine against Firestore (or in-memory when no project is
// configured) and runs one subcommand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/chat"
	"github.com/dvloznov/spendwise/internal/config"
	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/identity"
	"github.com/dvloznov/spendwise/internal/logger"
	"github.com/dvloznov/spendwise/internal/media"
	"github.com/dvloznov/spendwise/internal/remote"
	"github.com/dvloznov/spendwise/internal/remote/memory"
	"github.com/dvloznov/spendwise/internal/service"
	"github.com/dvloznov/spendwise/internal/store"
	"github.com/dvloznov/spendwise/internal/syncer"
)

const usage = `Usage: spendwise <command> [flags]

Commands:
  add       record a transaction
  list      list transactions
  report    print the financial report
  chat      ask the assistant a question
  budget    set or list budgets
  register  provision the user profile in the remote store
  run       keep syncing until interrupted
`

func main() {
	// Missing .env is fine; config falls back to real env and defaults.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "spendwise: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:]); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger, command string, args []string) error {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	rs, closeRemote, err := openRemote(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRemote()

	engine := syncer.New(st, rs, log)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop()

	var photos service.PhotoUploader
	if cfg.Media.Bucket != "" {
		uploader, err := media.NewUploader(ctx, cfg.Media.Bucket)
		if err != nil {
			return err
		}
		defer uploader.Close()
		photos = uploader
	}
	finance := service.NewFinance(st, engine, photos, log)

	switch command {
	case "add":
		return cmdAdd(ctx, finance, args)
	case "list":
		return cmdList(ctx, finance)
	case "report":
		return cmdReport(ctx, finance)
	case "chat":
		return cmdChat(ctx, cfg, st, engine, log, args)
	case "budget":
		return cmdBudget(ctx, finance, args)
	case "register":
		return cmdRegister(ctx, cfg, rs, args)
	case "run":
		return cmdRun(ctx, log)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func openRemote(ctx context.Context, cfg config.Config, log zerolog.Logger) (remote.Store, func(), error) {
	if cfg.Remote.Project == "" {
		log.Info().Msg("No remote project configured, running offline")
		return memory.New(), func() {}, nil
	}
	fs, err := remote.NewFirestore(ctx, cfg.Remote.Project, cfg.Remote.UserID)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() { _ = fs.Close() }, nil
}

func cmdAdd(ctx context.Context, finance *service.Finance, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	amount := fs.String("amount", "", "transaction amount, e.g. 12.50")
	typ := fs.String("type", "EXPENSE", "INCOME or EXPENSE")
	category := fs.String("category", "", "category, e.g. FOOD or SALARY")
	note := fs.String("note", "", "free-text note")
	photo := fs.String("photo", "", "path to a receipt photo to attach")
	if err := fs.Parse(args); err != nil {
		return err
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", *amount, err)
	}
	txType, err := domain.ParseTransactionType(*typ)
	if err != nil {
		return err
	}
	cat, err := domain.ParseCategory(strings.ToUpper(*category))
	if err != nil {
		return err
	}

	t := domain.Transaction{
		Amount:   amt,
		Type:     txType,
		Category: cat,
		Note:     *note,
	}
	if *photo != "" {
		t, err = finance.AddTransactionWithPhoto(ctx, t, *photo)
	} else {
		t, err = finance.AddTransaction(ctx, t)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Recorded transaction #%d\n", t.ID)
	return nil
}

func cmdList(ctx context.Context, finance *service.Finance) error {
	txs, err := finance.History(ctx)
	if err != nil {
		return err
	}
	for _, t := range txs {
		date := time.UnixMilli(t.Timestamp).Format("2006-01-02")
		line := fmt.Sprintf("#%d [%s] %s - %s: %s", t.ID, date, t.Type, t.Category, t.Amount)
		if t.Note != "" {
			line += " (" + t.Note + ")"
		}
		if !t.Synced {
			line += " *pending upload*"
		}
		fmt.Println(line)
	}
	return nil
}

func cmdReport(ctx context.Context, finance *service.Finance) error {
	text, err := finance.Report(ctx)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func cmdChat(ctx context.Context, cfg config.Config, st *store.Store, engine *syncer.Engine, log zerolog.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("chat: question text required")
	}
	provider, err := chat.NewGeminiProvider(ctx, cfg.AI.Model)
	if err != nil {
		return err
	}
	svc := chat.NewService(st, provider, engine, log)

	msg, err := svc.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println(msg.Text)
	return nil
}

func cmdBudget(ctx context.Context, finance *service.Finance, args []string) error {
	fs := flag.NewFlagSet("budget", flag.ContinueOnError)
	limit := fs.String("limit", "", "budget limit; empty to just list budgets")
	category := fs.String("category", "", "category; empty for the general budget")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *limit != "" {
		lim, err := decimal.NewFromString(*limit)
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", *limit, err)
		}
		b := domain.Budget{Limit: lim}
		if *category != "" {
			cat, err := domain.ParseCategory(strings.ToUpper(*category))
			if err != nil {
				return err
			}
			b.Category = &cat
		}
		if _, err := finance.SetBudget(ctx, b); err != nil {
			return err
		}
	}

	budgets, err := finance.Budgets(ctx)
	if err != nil {
		return err
	}
	for _, b := range budgets {
		name := "general"
		if b.Category != nil {
			name = string(*b.Category)
		}
		fmt.Printf("#%d %s: %s\n", b.ID, name, b.Limit)
	}
	return nil
}

func cmdRegister(ctx context.Context, cfg config.Config, rs remote.Store, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" {
		return fmt.Errorf("register: -name and -email are required")
	}

	prov := identity.NewProvisioner(rs)
	err := prov.Provision(ctx, identity.Profile{
		UID:         cfg.Remote.UserID,
		DisplayName: *name,
		Email:       *email,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Registered profile for %s\n", cfg.Remote.UserID)
	return nil
}

// cmdRun keeps the engine alive so listeners and the upload path can drain
// in the background, e.g. after a long offline stretch.
func cmdRun(ctx context.Context, log zerolog.Logger) error {
	log.Info().Msg("Syncing; press Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

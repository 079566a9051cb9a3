package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/locker-client/internal/api/dto"
	"github.com/spec-kit/locker-client/internal/bulk"
	"github.com/spec-kit/locker-client/internal/collect"
	"github.com/spec-kit/locker-client/internal/config"
	"github.com/spec-kit/locker-client/internal/domain"
	"github.com/spec-kit/locker-client/internal/events"
	"github.com/spec-kit/locker-client/internal/gateway"
	"github.com/spec-kit/locker-client/internal/observability"
	"github.com/spec-kit/locker-client/internal/routes"
	"github.com/spec-kit/locker-client/internal/service"
	"github.com/spec-kit/locker-client/internal/session"
	"github.com/spec-kit/locker-client/internal/tokenstore"
	apperrors "github.com/spec-kit/locker-client/pkg/util"
)

// guardedPaths maps commands to the route and roles they correspond to in
// the web client, so navigation decisions go through the same guard.
var guardedPaths = map[string]struct {
	path  string
	roles []domain.Role
}{
	"whoami":       {path: "/dashboard"},
	"states":       {path: "/locations", roles: []domain.Role{domain.RoleUser}},
	"store":        {path: "/store-item", roles: []domain.Role{domain.RoleUser}},
	"collect":      {path: "/my-lockers", roles: []domain.Role{domain.RoleUser}},
	"transactions": {path: "/transactions", roles: []domain.Role{domain.RoleUser}},
	"lockers":      {path: "/admin/lockers", roles: []domain.Role{domain.RoleAdmin}},
	"bulk":         {path: "/admin/lockers", roles: []domain.Role{domain.RoleAdmin}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dispatcher := events.NewInMemoryDispatcher()
	tokens := buildTokenStore(cfg, logger)
	gw := gateway.New(cfg.API, tokens, dispatcher, logger)
	api := service.NewLockerService(gw)
	manager := session.NewManager(tokens, api, dispatcher, logger)
	defer manager.Close()

	dispatcher.Subscribe(events.EventSessionTerminated, func(context.Context, events.Event) {
		fmt.Fprintln(os.Stderr, "session expired, please log in again")
	})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]

	manager.Initialize(ctx)

	if guard, ok := guardedPaths[command]; ok {
		decision := routes.Decide(manager.Session(), guard.path, guard.roles)
		switch decision.Kind {
		case routes.Redirect:
			if decision.RememberOrigin != "" {
				fmt.Fprintf(os.Stderr, "not logged in (would return to %s after login)\n", decision.RememberOrigin)
			} else {
				fmt.Fprintf(os.Stderr, "not allowed for your role, redirected to %s\n", decision.Target)
			}
			os.Exit(1)
		case routes.Suspend:
			fmt.Fprintln(os.Stderr, "session still loading")
			os.Exit(1)
		}
	}

	if err := run(ctx, command, args, manager, api, logger); err != nil {
		fmt.Fprintln(os.Stderr, apperrors.ServerDetail(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, manager *session.Manager, api *service.LockerService, logger *zap.Logger) error {
	switch command {
	case "login":
		return runLogin(ctx, args, manager, api)
	case "logout":
		manager.Logout()
		fmt.Println("logged out")
		return nil
	case "whoami":
		return runWhoami(manager)
	case "states":
		return runStates(ctx, api)
	case "lockers":
		return runLockers(ctx, api)
	case "store":
		return runStore(ctx, args, api)
	case "collect":
		return runCollect(ctx, args, api, logger)
	case "bulk":
		return runBulk(ctx, args, api, logger)
	case "transactions":
		return runTransactions(ctx, api)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runLogin(ctx context.Context, args []string, manager *session.Manager, api *service.LockerService) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)
	if *email == "" || *password == "" {
		return apperrors.NewValidationError("", "email and password required")
	}

	auth, err := api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := manager.Login(ctx, auth.AccessToken, auth.RefreshToken); err != nil {
		return err
	}
	fmt.Println("logged in")
	return nil
}

func runWhoami(manager *session.Manager) error {
	// Let the profile fetch settle so we print server-confirmed attributes.
	manager.Close()
	s := manager.Session()
	if !s.Authenticated() {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s <%s> role=%s\n", s.Profile.DisplayName, s.Profile.Email, s.Profile.Role)
	return nil
}

func runStates(ctx context.Context, api *service.LockerService) error {
	states, err := api.States(ctx)
	if err != nil {
		return err
	}
	for _, st := range states {
		fmt.Println(st.Name)
		for _, city := range st.Cities {
			fmt.Printf("  %s\n", city.Name)
			for _, point := range city.LockerPoints {
				fmt.Printf("    %s (%d lockers)\n", point.Name, len(point.Lockers))
			}
		}
	}
	return nil
}

func runLockers(ctx context.Context, api *service.LockerService) error {
	lockers, err := api.Lockers(ctx)
	if err != nil {
		return err
	}
	for _, l := range lockers {
		fmt.Printf("%s  %-12s %s\n", l.ID, l.Status, l.Name)
	}
	return nil
}

func runStore(ctx context.Context, args []string, api *service.LockerService) error {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	lockerID := fs.String("locker", "", "locker id")
	name := fs.String("name", "", "item name")
	description := fs.String("desc", "", "item description")
	senderEmail := fs.String("from", "", "sender email")
	receiverEmail := fs.String("to-email", "", "receiver email")
	receiverPhone := fs.String("to-phone", "", "receiver phone")
	_ = fs.Parse(args)

	item, err := api.StoreItem(ctx, dto.ItemCreateRequest{
		Name:                *name,
		LockerID:            *lockerID,
		YourEmail:           *senderEmail,
		ReceiverPhoneNumber: *receiverPhone,
		ReceiverEmailID:     *receiverEmail,
		Description:         *description,
	})
	if err != nil {
		return err
	}
	fmt.Printf("item %d stored in locker %s\n", item.ID, item.LockerID)
	return nil
}

func runCollect(ctx context.Context, args []string, api *service.LockerService, logger *zap.Logger) error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	lockerID := fs.String("locker", "", "locker id")
	contact := fs.String("contact", "", "email or phone to receive the OTP")
	_ = fs.Parse(args)

	workflow := collect.NewWorkflow(api, logger)
	defer workflow.Reset()

	workflow.SetLockerID(*lockerID)
	workflow.SetContact(*contact)
	if err := workflow.SubmitIdentifier(ctx); err != nil {
		return err
	}
	fmt.Println("OTP sent; check your email or SMS")

	reader := bufio.NewReader(os.Stdin)
	for {
		snap := workflow.Snapshot()
		if snap.State != collect.AwaitingOtp {
			break
		}
		fmt.Printf("enter 6-digit OTP (%ds left): ", snap.Countdown)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		workflow.SetOTP(strings.TrimSpace(line))
		if err := workflow.SubmitOTP(ctx); err != nil {
			fmt.Fprintln(os.Stderr, apperrors.ServerDetail(err))
			continue
		}
	}

	if result := workflow.Snapshot().Result; result != nil {
		fmt.Printf("collected item %d from locker %s, total due %.2f\n", result.ItemID, result.LockerID, result.TotalAmount)
	}
	return nil
}

func runBulk(ctx context.Context, args []string, api *service.LockerService, logger *zap.Logger) error {
	fs := flag.NewFlagSet("bulk", flag.ExitOnError)
	op := fs.String("op", "delete", "operation: delete or force-clear")
	ids := fs.String("ids", "", "comma-separated locker ids")
	_ = fs.Parse(args)

	operation := bulk.OperationDelete
	if *op == "force-clear" {
		operation = bulk.OperationForceClear
	}

	selection := bulk.NewSelection()
	selection.SelectAll(strings.Split(strings.TrimSpace(*ids), ","))

	coordinator := bulk.NewCoordinator(api, logger)
	report, err := coordinator.Run(ctx, selection, operation)
	if err != nil {
		return err
	}

	for id, outcome := range report.Outcomes {
		if outcome.OK {
			fmt.Printf("%s  ok\n", id)
		} else {
			fmt.Printf("%s  failed: %s\n", id, apperrors.ServerDetail(outcome.Err))
		}
	}
	fmt.Printf("%d succeeded, %d failed\n", report.Succeeded, report.Failed)
	return nil
}

func runTransactions(ctx context.Context, api *service.LockerService) error {
	txs, err := api.Transactions(ctx)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		fmt.Printf("item %d  locker %s  %.2f\n", tx.ItemID, tx.LockerID, tx.TotalAmount)
	}
	return nil
}

func buildTokenStore(cfg *config.Config, logger *zap.Logger) tokenstore.Store {
	if cfg.Tokens.Backend == "redis" {
		return tokenstore.NewRedisStore(cfg.Redis, logger)
	}
	return tokenstore.NewFileStore(cfg.Tokens.Path, logger)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: lockerctl <command> [flags]

commands:
  login -email <email> -password <password>
  logout
  whoami
  states
  lockers
  store -locker <id> -name <name> [-desc <text>] -from <email> -to-email <email> -to-phone <phone>
  collect -locker <id> -contact <email-or-phone>
  bulk -op delete|force-clear -ids <id,id,...>
  transactions`)
}

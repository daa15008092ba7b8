package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/teller/internal/admincred"
	"github.com/MarkoPoloResearchLab/teller/internal/audit"
	"github.com/MarkoPoloResearchLab/teller/internal/pinhash"
	"github.com/MarkoPoloResearchLab/teller/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/teller/internal/store/jsonstore"
	"github.com/MarkoPoloResearchLab/teller/pkg/teller"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagStoreURL     = "store-url"
	flagAdminPINHash = "admin-pin-hash"
	flagAccount      = "account"
	flagPIN          = "pin"
	flagNewPIN       = "new-pin"
	flagAmount       = "amount"
	flagTo           = "to"
	flagType         = "type"
	flagInitial      = "initial-balance"
	flagLimit        = "limit"
	flagAdminSecret  = "admin-secret"
	flagSecret       = "secret"

	configKeyStoreURL     = "store_url"
	configKeyAdminPINHash = "admin_pin_hash"

	defaultStoreURL = "accounts.json"
)

type runtimeConfig struct {
	StoreURL     string
	AdminPINHash string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "teller: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "teller",
		Short:         "Single-operator account ledger with PIN authentication",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}

	cmd.PersistentFlags().String(flagStoreURL, defaultStoreURL, "account store location (file path, sqlite:// or postgres:// DSN)")
	cmd.PersistentFlags().String(flagAdminPINHash, "", "credential hash gating the report commands")

	cmd.AddCommand(
		newCreateAccountCommand(cfg),
		newDepositCommand(cfg),
		newWithdrawCommand(cfg),
		newTransferCommand(cfg),
		newChangePINCommand(cfg),
		newBalanceCommand(cfg),
		newStatementCommand(cfg),
		newReportCommand(cfg),
		newHashCredentialCommand(),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv(configKeyStoreURL, "TELLER_STORE_URL"); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyAdminPINHash, "TELLER_ADMIN_PIN_HASH"); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyStoreURL, cmd.Root().PersistentFlags().Lookup(flagStoreURL)); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyAdminPINHash, cmd.Root().PersistentFlags().Lookup(flagAdminPINHash)); err != nil {
		return err
	}

	cfg.StoreURL = viper.GetString(configKeyStoreURL)
	if cfg.StoreURL == "" {
		cfg.StoreURL = defaultStoreURL
	}
	cfg.AdminPINHash = viper.GetString(configKeyAdminPINHash)
	return nil
}

// app is the per-invocation composition root: one store, one hasher, one
// audit trail shared by the auth manager and the ledger service.
type app struct {
	logger   *zap.Logger
	recorder *audit.Recorder
	hasher   *pinhash.Hasher
	service  *teller.Service
	auth     *teller.AuthManager
	cleanup  func() error
}

func newApp(ctx context.Context, cfg *runtimeConfig) (*app, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	store, cleanup, err := openStore(ctx, cfg.StoreURL)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("store open: %w", err)
	}
	hasher, err := pinhash.New(pinhash.DefaultIterations)
	if err != nil {
		return nil, err
	}
	recorder := audit.NewRecorder(logger)
	clock := func() int64 { return time.Now().UTC().Unix() }
	service, err := teller.NewService(store, hasher, clock, teller.WithOperationLogger(recorder))
	if err != nil {
		return nil, fmt.Errorf("service init: %w", err)
	}
	authManager, err := teller.NewAuthManager(store, hasher, teller.WithAuthOperationLogger(recorder))
	if err != nil {
		return nil, fmt.Errorf("auth manager init: %w", err)
	}
	return &app{
		logger:   logger,
		recorder: recorder,
		hasher:   hasher,
		service:  service,
		auth:     authManager,
		cleanup: func() error {
			_ = logger.Sync()
			if cleanup != nil {
				return cleanup()
			}
			return nil
		},
	}, nil
}

func (application *app) close() {
	_ = application.cleanup()
}

// authenticate runs the login state machine before any balance-affecting
// call, translating the lockout transition into an operator-facing message.
func (application *app) authenticate(ctx context.Context, rawAccountID string, rawPIN string) (teller.AccountID, error) {
	accountID, err := teller.NewAccountID(rawAccountID)
	if err != nil {
		return teller.AccountID{}, err
	}
	pin, err := teller.NewPIN(rawPIN)
	if err != nil {
		return teller.AccountID{}, err
	}
	if _, err := application.auth.Authenticate(ctx, accountID, pin); err != nil {
		if errors.Is(err, teller.ErrAccountLockedNow) {
			return teller.AccountID{}, fmt.Errorf("%w: account is now locked, contact support", err)
		}
		return teller.AccountID{}, err
	}
	return accountID, nil
}

func newCreateAccountCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create an account with a PIN, a type, and an initial balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			pin, err := teller.NewPIN(mustString(cmd, flagPIN))
			if err != nil {
				return err
			}
			accountType, err := teller.ParseAccountType(mustString(cmd, flagType))
			if err != nil {
				return err
			}
			initialAmount, err := teller.ParseAmountCents(mustString(cmd, flagInitial))
			if err != nil {
				return err
			}
			initialBalance, err := teller.NewBalanceCents(initialAmount.Int64())
			if err != nil {
				return err
			}
			newAccountID, err := application.service.CreateAccount(cmd.Context(), pin, accountType, initialBalance)
			if err != nil {
				return err
			}
			cmd.Printf("Account %s created with balance %s\n", newAccountID, teller.FormatAmountCents(initialBalance.Int64()))
			return nil
		},
	}
	cmd.Flags().String(flagPIN, "", "four digit PIN for the new account")
	cmd.Flags().String(flagType, teller.AccountTypeSavings.String(), "account type: savings or checking")
	cmd.Flags().String(flagInitial, "0", "initial balance (decimal)")
	return cmd
}

func newDepositCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit into an authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			accountID, err := application.authenticate(cmd.Context(), mustString(cmd, flagAccount), mustString(cmd, flagPIN))
			if err != nil {
				return err
			}
			amount, err := parsePositiveAmount(mustString(cmd, flagAmount))
			if err != nil {
				return err
			}
			newBalance, err := application.service.Deposit(cmd.Context(), accountID, amount)
			if err != nil {
				return err
			}
			cmd.Printf("Deposit complete. New balance: %s\n", teller.FormatAmountCents(newBalance.Int64()))
			return nil
		},
	}
	addSessionFlags(cmd)
	cmd.Flags().String(flagAmount, "", "amount to deposit (decimal)")
	return cmd
}

func newWithdrawCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw from an authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			accountID, err := application.authenticate(cmd.Context(), mustString(cmd, flagAccount), mustString(cmd, flagPIN))
			if err != nil {
				return err
			}
			amount, err := parsePositiveAmount(mustString(cmd, flagAmount))
			if err != nil {
				return err
			}
			newBalance, err := application.service.Withdraw(cmd.Context(), accountID, amount)
			if err != nil {
				return err
			}
			cmd.Printf("Withdrawal complete. New balance: %s\n", teller.FormatAmountCents(newBalance.Int64()))
			return nil
		},
	}
	addSessionFlags(cmd)
	cmd.Flags().String(flagAmount, "", "amount to withdraw (decimal)")
	return cmd
}

func newTransferCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer from an authenticated account to another account",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			sourceID, err := application.authenticate(cmd.Context(), mustString(cmd, flagAccount), mustString(cmd, flagPIN))
			if err != nil {
				return err
			}
			destinationID, err := teller.NewAccountID(mustString(cmd, flagTo))
			if err != nil {
				return err
			}
			amount, err := parsePositiveAmount(mustString(cmd, flagAmount))
			if err != nil {
				return err
			}
			newBalance, err := application.service.Transfer(cmd.Context(), sourceID, destinationID, amount)
			if err != nil {
				return err
			}
			cmd.Printf("Transfer complete. New balance: %s\n", teller.FormatAmountCents(newBalance.Int64()))
			return nil
		},
	}
	addSessionFlags(cmd)
	cmd.Flags().String(flagTo, "", "destination account id")
	cmd.Flags().String(flagAmount, "", "amount to transfer (decimal)")
	return cmd
}

func newChangePINCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change-pin",
		Short: "Replace the PIN of an authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			accountID, err := application.authenticate(cmd.Context(), mustString(cmd, flagAccount), mustString(cmd, flagPIN))
			if err != nil {
				return err
			}
			currentPIN, err := teller.NewPIN(mustString(cmd, flagPIN))
			if err != nil {
				return err
			}
			newPIN, err := teller.NewPIN(mustString(cmd, flagNewPIN))
			if err != nil {
				return err
			}
			if err := application.service.ChangePIN(cmd.Context(), accountID, currentPIN, newPIN); err != nil {
				return err
			}
			cmd.Println("PIN changed")
			return nil
		},
	}
	addSessionFlags(cmd)
	cmd.Flags().String(flagNewPIN, "", "new four digit PIN")
	return cmd
}

func newBalanceCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of an authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			accountID, err := application.authenticate(cmd.Context(), mustString(cmd, flagAccount), mustString(cmd, flagPIN))
			if err != nil {
				return err
			}
			balance, err := application.service.Balance(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			cmd.Printf("Balance: %s\n", teller.FormatAmountCents(balance.Int64()))
			return nil
		},
	}
	addSessionFlags(cmd)
	return cmd
}

func newStatementCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Show the most recent transactions of an authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			accountID, err := application.authenticate(cmd.Context(), mustString(cmd, flagAccount), mustString(cmd, flagPIN))
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt(flagLimit)
			if err != nil {
				return err
			}
			statement, err := application.service.Statement(cmd.Context(), accountID, limit)
			if err != nil {
				return err
			}
			for _, transaction := range statement.Transactions {
				cmd.Printf("%s  %-12s  %s\n",
					time.Unix(transaction.AtUnixUTC, 0).UTC().Format(time.RFC3339),
					transaction.Kind.String(),
					teller.FormatAmountCents(transaction.AmountCents.Int64()))
			}
			cmd.Printf("Current balance: %s\n", teller.FormatAmountCents(statement.BalanceCents))
			return nil
		},
	}
	addSessionFlags(cmd)
	cmd.Flags().Int(flagLimit, teller.DefaultStatementLimit, "number of transactions to show")
	return cmd
}

func newReportCommand(cfg *runtimeConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Administrative reports over the whole account store",
	}
	cmd.PersistentFlags().String(flagAdminSecret, "", "administrative secret")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Summary of every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			if err := verifyAdmin(cmd, cfg, application); err != nil {
				return err
			}
			report, err := application.service.SummaryReport(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Accounts: %d\n", report.AccountCount)
			cmd.Printf("Total balance: %s\n", teller.FormatAmountCents(report.TotalBalanceCents))
			for _, line := range report.Lines {
				cmd.Printf("%s  %-8s  %s\n", line.AccountID, line.Type.String(), teller.FormatAmountCents(line.BalanceCents))
			}
			return nil
		},
	}

	account := &cobra.Command{
		Use:   "account",
		Short: "Detailed report for one account",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.close()
			if err := verifyAdmin(cmd, cfg, application); err != nil {
				return err
			}
			accountID, err := teller.NewAccountID(mustString(cmd, flagAccount))
			if err != nil {
				return err
			}
			report, err := application.service.Report(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			cmd.Printf("Account %s (%s)\n", report.AccountID, report.Type.String())
			cmd.Printf("Balance: %s\n", teller.FormatAmountCents(report.BalanceCents))
			cmd.Printf("Failed login attempts: %d\n", report.LoginAttempts)
			for _, transaction := range report.Transactions {
				cmd.Printf("%s  %-12s  %s\n",
					time.Unix(transaction.AtUnixUTC, 0).UTC().Format(time.RFC3339),
					transaction.Kind.String(),
					teller.FormatAmountCents(transaction.AmountCents.Int64()))
			}
			return nil
		},
	}
	account.Flags().String(flagAccount, "", "account id to report on")

	cmd.AddCommand(summary, account)
	return cmd
}

func newHashCredentialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-credential",
		Short: "Derive a credential hash suitable for TELLER_ADMIN_PIN_HASH",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := mustString(cmd, flagSecret)
			if secret == "" {
				return fmt.Errorf("secret is required")
			}
			hasher, err := pinhash.New(pinhash.DefaultIterations)
			if err != nil {
				return err
			}
			credentialHash, err := hasher.Hash(secret)
			if err != nil {
				return err
			}
			cmd.Println(credentialHash)
			return nil
		},
	}
	cmd.Flags().String(flagSecret, "", "secret to hash")
	return cmd
}

func verifyAdmin(cmd *cobra.Command, cfg *runtimeConfig, application *app) error {
	verifier, err := admincred.New(cfg.AdminPINHash, application.hasher)
	if err != nil {
		return err
	}
	secret, err := cmd.Flags().GetString(flagAdminSecret)
	if err != nil {
		return err
	}
	return verifier.Verify(secret)
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagAccount, "", "account id")
	cmd.Flags().String(flagPIN, "", "four digit PIN")
}

func mustString(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return value
}

func parsePositiveAmount(raw string) (teller.AmountCents, error) {
	cents, err := teller.ParseAmountCents(raw)
	if err != nil {
		return 0, err
	}
	return teller.NewPositiveAmountCents(cents.Int64())
}

func openStore(ctx context.Context, storeURL string) (teller.Store, func() error, error) {
	driver, target, err := resolveDriver(storeURL)
	if err != nil {
		return nil, nil, err
	}
	if driver == "json" {
		return jsonstore.New(target), nil, nil
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(storeURL), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(target), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported store scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	if driver == "sqlite" {
		if err := gormstore.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return sqlDB.Close() }
	return gormstore.New(db.WithContext(ctx)), cleanup, nil
}

func resolveDriver(storeURL string) (string, string, error) {
	if strings.HasPrefix(storeURL, "postgres://") || strings.HasPrefix(storeURL, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(storeURL, "sqlite://") {
		parsed, err := url.Parse(storeURL)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := parsed.Path
		if path == "" {
			path = parsed.Host
		}
		if path == "" || path == "/" {
			path = "teller.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a JSON snapshot path.
	return "json", strings.TrimPrefix(storeURL, "json://"), nil
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

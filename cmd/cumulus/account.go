package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	internalauth "cumulus/internal/auth"
	"cumulus/internal/config"
	"cumulus/internal/store"
)

func newAccountCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage storage accounts",
	}
	cmd.AddCommand(newAccountAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newAccountListCmd(cfg, jsonOutput))
	cmd.AddCommand(newAccountSetLimitCmd(cfg, jsonOutput))
	cmd.AddCommand(newAccountSetDisabledCmd(cfg, jsonOutput, "disable", "Disable one account", true))
	cmd.AddCommand(newAccountSetDisabledCmd(cfg, jsonOutput, "enable", "Enable one account", false))
	cmd.AddCommand(newAccountAuditCmd(cfg, jsonOutput))
	cmd.AddCommand(newAccountImportCmd(cfg, jsonOutput))
	return cmd
}

func withStore(cfg *config.Config, fn func(st *store.Store) error) error {
	if cfg == nil || cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func newAccountAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var passwordStdin bool
	var name string
	var limit int64

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create one account",
		Args:  requireExactlyArgs(1, "email is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}

			email, err := internalauth.NormalizeEmail(args[0])
			if err != nil {
				return err
			}

			passwordBytes, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			password := strings.TrimSpace(string(passwordBytes))
			if err := internalauth.ValidatePassword(password); err != nil {
				return err
			}
			hash, err := internalauth.HashPassword(password)
			if err != nil {
				return err
			}

			displayName := strings.TrimSpace(name)
			if displayName == "" {
				displayName = email
			}

			return withStore(cfg, func(st *store.Store) error {
				account, err := st.CreateAccount(cmd.Context(), displayName, email, hash, limit, time.Now().UTC())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(account)
				}
				return writePlain("created account %s (%s)\n", account.Email, account.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the email)")
	cmd.Flags().Int64Var(&limit, "limit", 0, "storage limit in bytes (0 uses the default)")
	return cmd
}

func newAccountListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				accounts, err := st.ListAccounts(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"count": len(accounts), "accounts": accounts})
				}
				if len(accounts) == 0 {
					return writePlain("no accounts\n")
				}
				if err := writePlain("EMAIL\tUSED\tLIMIT\tSTATUS\tID\n"); err != nil {
					return err
				}
				for _, account := range accounts {
					status := "enabled"
					if account.Disabled {
						status = "disabled"
					}
					if err := writePlain("%s\t%d\t%d\t%s\t%s\n",
						account.Email, account.StorageUsed, account.StorageLimit, status, account.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newAccountSetLimitCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "set-limit <email> <bytes>",
		Short: "Change one account's storage limit",
		Args:  requireExactlyArgs(2, "email and limit are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := internalauth.NormalizeEmail(args[0])
			if err != nil {
				return err
			}
			limit, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || limit <= 0 {
				return fmt.Errorf("limit must be a positive integer")
			}

			return withStore(cfg, func(st *store.Store) error {
				account, err := st.SetStorageLimit(cmd.Context(), email, limit, time.Now().UTC())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(account)
				}
				return writePlain("set limit of %s to %d bytes\n", account.Email, account.StorageLimit)
			})
		},
	}
}

func newAccountSetDisabledCmd(cfg *config.Config, jsonOutput *bool, name, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <email>",
		Short: short,
		Args:  requireExactlyArgs(1, "email is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := internalauth.NormalizeEmail(args[0])
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				account, err := st.SetAccountDisabled(cmd.Context(), email, disabled, time.Now().UTC())
				if err != nil {
					return err
				}
				if account == nil {
					return fmt.Errorf("account %s not found", email)
				}
				if *jsonOutput {
					return writeJSON(account)
				}
				action := "enabled"
				if disabled {
					action = "disabled"
				}
				return writePlain("%s account %s\n", action, account.Email)
			})
		},
	}
}

type accountAuditResult struct {
	Email        string `json:"email"`
	StorageUsed  int64  `json:"storage_used"`
	CatalogBytes int64  `json:"catalog_bytes"`
	Consistent   bool   `json:"consistent"`
}

// newAccountAuditCmd cross-checks the ledger against the catalog: for every
// account, storage_used must equal the sum of its cataloged file sizes.
func newAccountAuditCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Verify ledger usage against cataloged file sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				accounts, err := st.ListAccounts(cmd.Context())
				if err != nil {
					return err
				}

				results := make([]accountAuditResult, 0, len(accounts))
				drifted := 0
				for _, account := range accounts {
					catalogBytes, err := st.SumFileSizesByAccount(cmd.Context(), account.ID)
					if err != nil {
						return err
					}
					result := accountAuditResult{
						Email:        account.Email,
						StorageUsed:  account.StorageUsed,
						CatalogBytes: catalogBytes,
						Consistent:   account.StorageUsed == catalogBytes,
					}
					if !result.Consistent {
						drifted++
					}
					results = append(results, result)
				}

				if *jsonOutput {
					return writeJSON(map[string]any{"accounts": results, "drifted": drifted})
				}
				for _, result := range results {
					marker := "ok"
					if !result.Consistent {
						marker = "DRIFT"
					}
					if err := writePlain("%s\tledger=%d\tcatalog=%d\t%s\n",
						result.Email, result.StorageUsed, result.CatalogBytes, marker); err != nil {
						return err
					}
				}
				if drifted > 0 {
					return fmt.Errorf("%d account(s) drifted", drifted)
				}
				return nil
			})
		},
	}
}

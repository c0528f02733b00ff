package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	internalauth "cumulus/internal/auth"
	"cumulus/internal/config"
	"cumulus/internal/store"
)

// accountSeed is one entry in a YAML seed file:
//
//	accounts:
//	  - name: Alice
//	    email: alice@example.com
//	    password: changeme-1
//	    storage_limit: 1073741824
type accountSeed struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Password     string `yaml:"password"`
	StorageLimit int64  `yaml:"storage_limit"`
}

type accountSeedFile struct {
	Accounts []accountSeed `yaml:"accounts"`
}

func newAccountImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Create accounts from a YAML seed file",
		Args:  requireExactlyArgs(1, "seed file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := loadAccountSeeds(args[0])
			if err != nil {
				return err
			}
			if len(seeds) == 0 {
				return fmt.Errorf("seed file contains no accounts")
			}

			return withStore(cfg, func(st *store.Store) error {
				created := 0
				skipped := 0
				now := time.Now().UTC()
				for _, seed := range seeds {
					hash, err := internalauth.HashPassword(seed.Password)
					if err != nil {
						return fmt.Errorf("seed %s: %w", seed.Email, err)
					}
					_, err = st.CreateAccount(cmd.Context(), seed.Name, seed.Email, hash, seed.StorageLimit, now)
					if err != nil {
						if skipExisting && errors.Is(err, store.ErrEmailTaken) {
							skipped++
							continue
						}
						return fmt.Errorf("seed %s: %w", seed.Email, err)
					}
					created++
				}

				if *jsonOutput {
					return writeJSON(map[string]any{"created": created, "skipped": skipped})
				}
				return writePlain("created %d account(s), skipped %d\n", created, skipped)
			})
		},
	}

	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip seeds whose email is already registered")
	return cmd
}

func loadAccountSeeds(path string) ([]accountSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file accountSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, seed := range file.Accounts {
		normalized, err := internalauth.NormalizeEmail(seed.Email)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", i+1, err)
		}
		file.Accounts[i].Email = normalized
		if err := internalauth.ValidatePassword(seed.Password); err != nil {
			return nil, fmt.Errorf("seed %s: %w", normalized, err)
		}
		if file.Accounts[i].Name == "" {
			file.Accounts[i].Name = normalized
		}
	}
	return file.Accounts, nil
}

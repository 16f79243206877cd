package apikey

import (
	"context"
	"fmt"

	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/glyphworks/ocr-server/internal/db"
	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/glyphworks/ocr-server/internal/db/repository"
	"github.com/glyphworks/ocr-server/internal/utils/hashutil"
	"github.com/glyphworks/ocr-server/internal/utils/randutil"

	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "api-key",
	Short: "Manage glyph API keys",
}

// newRepository connects to the configured database. Connections happen per
// invocation so help output never requires a reachable database.
func newRepository(ctx context.Context) (repository.IAPIKeyRepository, error) {
	driver, err := db.NewConnection(ctx, config.MustGetConfig())
	if err != nil {
		return nil, err
	}

	return repository.NewAPIKeyRepository(driver.GetDB()), nil
}

func init() {
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Creates a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := newRepository(cmd.Context())
			if err != nil {
				return err
			}

			key, err := randutil.RandomString(32)
			if err != nil {
				return err
			}

			apiKey := models.NewAPIKey(
				hashutil.Sha3256Hash([]byte(key)),
				randutil.MaskString(key, 4, 4),
			)
			if _, err := repo.Create(cmd.Context(), apiKey); err != nil {
				return err
			}

			// The raw key is only printed here; the database keeps its hash.
			fmt.Printf("API key created: %s\n", key)
			return nil
		},
	}

	revokeCmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := newRepository(cmd.Context())
			if err != nil {
				return err
			}

			key := args[0]
			if err := repo.RevokeByHash(cmd.Context(), hashutil.Sha3256Hash([]byte(key))); err != nil {
				return err
			}

			fmt.Printf("API key revoked: %s\n", randutil.MaskString(key, 4, 4))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := newRepository(cmd.Context())
			if err != nil {
				return err
			}

			apiKeys, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(apiKeys) == 0 {
				fmt.Println("No API keys found")
				return nil
			}

			fmt.Println("API keys:")
			for _, apiKey := range apiKeys {
				fmt.Printf("%s (Revoked: %t)\n", apiKey.KeyMask, apiKey.IsRevoked)
			}

			return nil
		},
	}

	Cmd.AddCommand(newCmd, revokeCmd, listCmd)
}

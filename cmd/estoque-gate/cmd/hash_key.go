package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/estoque-gate/estoquegate/internal/domain/auth"
)

var useArgon2id bool

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [operator-key]",
	Short: "Generate a hash for an operator key",
	Long: `Generate a hash of an operator key for use in config.

By default the output is "sha256:<hex>". With --argon2id the key is hashed
with Argon2id instead, which resists offline brute force at the cost of
slower verification. Both formats can be used in admin.api_keys.

Example:
  estoque-gate hash-key "my-secret-key"
  estoque-gate hash-key --argon2id "my-secret-key"

Security note: the key will appear in shell history.
Consider clearing history after use or using an environment variable:
  estoque-gate hash-key "$OPERATOR_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if useArgon2id {
			hash, err := auth.HashKeyArgon2id(key)
			if err != nil {
				return fmt.Errorf("failed to hash key: %w", err)
			}
			fmt.Println(hash)
			return nil
		}
		fmt.Println("sha256:" + auth.HashKey(key))
		return nil
	},
}

func init() {
	hashKeyCmd.Flags().BoolVar(&useArgon2id, "argon2id", false, "Hash with Argon2id instead of SHA256")
	rootCmd.AddCommand(hashKeyCmd)
}

package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/offer-escrow/internal/service"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("role", "user", "Роль в токене")
	tokenCmd.Flags().Duration("ttl", 0, "Время жизни токена (по умолчанию из конфигурации)")
}

// tokenCmd выпускает access-токен для локальной отладки API.
var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Выпустить access-токен для пользователя",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("token: некорректный идентификатор пользователя: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = cfg.AccessTokenTTL
	}

	token, expiresAt, err := service.NewTokenManager(cfg.JWTSecret, ttl).GenerateAccess(userID, role)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

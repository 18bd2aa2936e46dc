package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to item sources",
	}
	cmd.AddCommand(newAuthGoogleCmd())
	return cmd
}

func newAuthGoogleCmd() *cobra.Command {
	var (
		account string
		code    string
	)

	cmd := &cobra.Command{
		Use:   "google",
		Short: "Authorize Gmail and Calendar access for an account",
		Long: `Authorize Gmail and Calendar access. Open the printed URL, grant access and
paste the code parameter of the page you are redirected to. The token is
stored in the system keyring and refreshed automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
				return errors.New("google.client_id and google.client_secret must be configured")
			}
			if account == "" {
				account = cfg.Google.Account
			}

			store, err := openSecrets()
			if err != nil {
				return err
			}
			tokens := google.NewKeyringTokenProvider(store)
			oauthCfg := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret)

			out := cmd.OutOrStdout()
			if code == "" {
				p := newPrinter(out)
				p.heading("Google authorization", "account "+account)
				p.printf("Visit this URL in your browser:\n\n  %s\n\n", google.AuthURL(oauthCfg, account))
				if code, err = readCode(cmd); err != nil {
					return err
				}
			}
			if code == "" {
				return errors.New("no authorization code given")
			}

			if err := tokens.Exchange(cmd.Context(), oauthCfg, account, code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Authorization successful for account '%s'\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account name (default: google.account)")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code, skips the prompt")
	return cmd
}

func readCode(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		var code string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Authorization code").
					Value(&code),
			),
		).Run()
		if err != nil {
			return "", fmt.Errorf("reading code: %w", err)
		}
		return code, nil
	}
	fmt.Fprint(cmd.OutOrStdout(), "Authorization code: ")
	return readLine(in)
}

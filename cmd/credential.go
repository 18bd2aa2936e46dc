package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/config"
	"github.com/teemow/inboxassist/internal/credential"
)

// openSecrets opens the keyring used by the credential and auth commands.
var openSecrets = func() (*credential.Store, error) {
	return credential.Open("")
}

// credentialKey picks the keyring entry a credential command works on.
func credentialKey(cfg *config.Config, imapPassword bool) (string, error) {
	if imapPassword {
		if cfg.IMAP.User == "" {
			return "", errors.New("imap.user is not configured (use --imap-user)")
		}
		return credential.IMAPPasswordKey(cfg.IMAP.User), nil
	}
	if cfg.Security.APIKeyKeyringRef != "" {
		return cfg.Security.APIKeyKeyringRef, nil
	}
	return credential.KeyInferenceAPIKey, nil
}

func newCredentialCmd() *cobra.Command {
	var (
		imapPassword bool
		imapUser     string
	)

	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage secrets in the system keyring",
		Long: `Store or delete the inference API key in the system keyring. The key is
stored under security.api_key_keyring_ref, or under a default entry when
that is not set. With --imap the IMAP password of imap.user is managed
instead.`,
	}
	cmd.PersistentFlags().BoolVar(&imapPassword, "imap", false, "Manage the IMAP password instead of the inference API key")
	cmd.PersistentFlags().StringVar(&imapUser, "imap-user", "", "IMAP user name (overrides imap.user)")

	withIMAPUser := func(cfg *config.Config) {
		if imapUser != "" {
			cfg.IMAP.User = imapUser
		}
	}

	var value string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store a secret",
		Long: `Store a secret. The value is read from --value, from a prompt on a
terminal, or from the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(withIMAPUser)
			if err != nil {
				return err
			}
			key, err := credentialKey(cfg, imapPassword)
			if err != nil {
				return err
			}
			secret := value
			if secret == "" {
				if secret, err = readSecret(cmd.InOrStdin(), "Secret for "+key); err != nil {
					return err
				}
			}
			if secret == "" {
				return errors.New("secret must not be empty")
			}

			store, err := openSecrets()
			if err != nil {
				return err
			}
			if err := store.Set(key, secret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in the keyring\n", key)
			return nil
		},
	}
	setCmd.Flags().StringVar(&value, "value", "", "Secret value (prefer the prompt to keep it out of the shell history)")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stored secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(withIMAPUser)
			if err != nil {
				return err
			}
			key, err := credentialKey(cfg, imapPassword)
			if err != nil {
				return err
			}
			store, err := openSecrets()
			if err != nil {
				return err
			}
			if err := store.Delete(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from the keyring\n", key)
			return nil
		},
	}

	cmd.AddCommand(setCmd, deleteCmd)
	return cmd
}

// readSecret asks for a hidden value on a terminal and otherwise reads the
// first line of in.
func readSecret(in io.Reader, title string) (string, error) {
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		var secret string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title(title).
					EchoMode(huh.EchoModePassword).
					Value(&secret),
			),
		).Run()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(secret), nil
	}
	return readLine(in)
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

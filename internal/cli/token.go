package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/miledo/internal/credential"
	"github.com/nhle/miledo/internal/model"
)

// tokenStore is the part of credential.Session the token commands use.
type tokenStore interface {
	SetTokens(access, refresh string) error
	Terminate() error
	Status() (credential.Status, error)
}

// openSession is replaced in tests.
var openSession = func() (tokenStore, error) {
	vault, err := credential.OpenVault(model.ConfigDir())
	if err != nil {
		return nil, err
	}
	return credential.NewSession(vault), nil
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API access token",
	}
	cmd.AddCommand(newTokenSetCmd(), newTokenClearCmd(), newTokenStatusCmd())
	return cmd
}

func newTokenSetCmd() *cobra.Command {
	var refresh string

	cmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store an access token in the keyring",
		Long: `Store an access token in the keyring. Without an argument the token is
read from the first line of stdin, which keeps it out of shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = line
			}

			session, err := openSession()
			if err != nil {
				return err
			}
			if err := session.SetTokens(strings.TrimSpace(token), refresh); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token stored")
			return nil
		},
	}

	cmd.Flags().StringVar(&refresh, "refresh", "", "Refresh token to store alongside")
	return cmd
}

func newTokenClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession()
			if err != nil {
				return err
			}
			if err := session.Terminate(); err != nil {
				return fmt.Errorf("failed to clear tokens: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Tokens cleared")
			return nil
		},
	}
}

// tokenStatus is the printable form of credential.Status.
type tokenStatus struct {
	Source    string `json:"source" yaml:"source"`
	ExpiresAt string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired   bool   `json:"expired" yaml:"expired"`
}

func newTokenStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the token comes from and when it expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession()
			if err != nil {
				return err
			}
			st, err := session.Status()
			if err != nil {
				return err
			}

			out := tokenStatus{Source: string(st.Source), Expired: st.Expired}
			if !st.ExpiresAt.IsZero() {
				out.ExpiresAt = st.ExpiresAt.Format(time.RFC3339)
			}
			if ok, err := encode(cmd.OutOrStdout(), output, out); ok {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case st.Source == credential.SourceNone:
				fmt.Fprintln(w, "No token. Run `miledo token set`.")
			case st.Expired:
				fmt.Fprintf(w, "Token from %s expired at %s\n", st.Source, out.ExpiresAt)
			case out.ExpiresAt != "":
				fmt.Fprintf(w, "Token from %s, valid until %s\n", st.Source, out.ExpiresAt)
			default:
				fmt.Fprintf(w, "Token from %s, no expiry\n", st.Source)
			}
			return nil
		},
	}
}

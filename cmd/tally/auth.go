package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Connect a bank account via Plaid",
	}
	cmd.AddCommand(authLinkCmd())
	cmd.AddCommand(authStatusCmd())
	cmd.AddCommand(authUnlinkCmd())
	return cmd
}

func authLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a bank account using Plaid Link",
		Long: `Link a bank account using Plaid Link.

This command starts a local web server, opens Plaid Link in your
browser, and saves the resulting access token for future syncs.`,
		RunE: runAuthLink,
	}
	cmd.Flags().Int("port", 8080, "local port for the Link page")
	return cmd
}

func runAuthLink(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	port, _ := cmd.Flags().GetInt("port")

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	linkToken, err := a.provider.CreateLinkToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to create link token: %w", err)
	}

	done := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, linkPageHTML, linkToken)
	})
	mux.HandleFunc("/exchange", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			PublicToken string `json:"public_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		accessToken, itemID, err := a.provider.ExchangePublicToken(r.Context(), payload.PublicToken)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			done <- err
			return
		}
		if err := a.tokens.SaveAccessToken(r.Context(), accessToken, itemID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			done <- err
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "linked")
		done <- nil
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- err
		}
	}()

	fmt.Printf("Open http://localhost:%d in your browser to link an account.\n", port)

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Warn("failed to shut down link server", "error", shutdownErr)
	}

	if err != nil {
		return err
	}
	fmt.Println("Account linked.")
	return nil
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a bank account is linked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.tokens.AccessToken(ctx); err != nil {
				fmt.Println("No account linked. Run 'tally auth link' to connect one.")
				return nil
			}

			accounts, err := a.provider.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("linked, but account lookup failed: %w", err)
			}
			fmt.Printf("Linked. %d account(s) connected.\n", len(accounts))
			return nil
		},
	}
}

func authUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink",
		Short: "Remove the stored bank link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tokens.ClearAccessToken(ctx); err != nil {
				return err
			}
			fmt.Println("Bank link removed.")
			return nil
		},
	}
}

const linkPageHTML = `<!DOCTYPE html>
<html>
<head>
  <title>tally - Link your bank</title>
  <script src="https://cdn.plaid.com/link/v2/stable/link-initialize.js"></script>
</head>
<body>
  <h1>Link your bank account</h1>
  <button id="link-button">Open Plaid Link</button>
  <p id="status"></p>
  <script>
    const handler = Plaid.create({
      token: '%s',
      onSuccess: async (public_token) => {
        const resp = await fetch('/exchange', {
          method: 'POST',
          headers: {'Content-Type': 'application/json'},
          body: JSON.stringify({public_token}),
        });
        document.getElementById('status').textContent =
          resp.ok ? 'Linked! You can close this tab.' : 'Link failed.';
      },
      onExit: (err) => {
        if (err) {
          document.getElementById('status').textContent = 'Link exited: ' + err.error_message;
        }
      },
    });
    document.getElementById('link-button').onclick = () => handler.open();
  </script>
</body>
</html>`

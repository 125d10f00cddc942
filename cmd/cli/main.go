package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fraudgate-cli",
		Short: "Fraudgate CLI tool",
		Long:  `A command line interface for interacting with the Fraudgate API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Fraudgate API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		submitCmd(),
		statusCmd(),
		decisionsCmd(),
		workflowCmd(),
		reviewsCmd(),
		accountCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func submitCmd() *cobra.Command {
	var (
		txnType          string
		amount           string
		currency         string
		senderAccount    string
		senderName       string
		senderCountry    string
		recipientAccount string
		recipientName    string
		recipientCountry string
		reference        string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a transaction for processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"type":     txnType,
				"amount":   amount,
				"currency": currency,
				"sender": map[string]any{
					"account_number": senderAccount,
					"name":           senderName,
					"country":        senderCountry,
				},
				"recipient": map[string]any{
					"account_number": recipientAccount,
					"name":           recipientName,
					"country":        recipientCountry,
				},
				"reference": reference,
			}
			return doRequest(http.MethodPost, "/api/v1/transactions/", payload)
		},
	}

	cmd.Flags().StringVar(&txnType, "type", "wire", "Transaction type (wire, ach, international)")
	cmd.Flags().StringVar(&amount, "amount", "", "Transaction amount")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Currency code")
	cmd.Flags().StringVar(&senderAccount, "sender-account", "", "Sender account number")
	cmd.Flags().StringVar(&senderName, "sender-name", "", "Sender name")
	cmd.Flags().StringVar(&senderCountry, "sender-country", "", "Sender country code")
	cmd.Flags().StringVar(&recipientAccount, "recipient-account", "", "Recipient account number")
	cmd.Flags().StringVar(&recipientName, "recipient-name", "", "Recipient name")
	cmd.Flags().StringVar(&recipientCountry, "recipient-country", "", "Recipient country code")
	cmd.Flags().StringVar(&reference, "reference", "", "Business reference")
	cobra.CheckErr(cmd.MarkFlagRequired("amount"))
	cobra.CheckErr(cmd.MarkFlagRequired("sender-account"))
	cobra.CheckErr(cmd.MarkFlagRequired("recipient-account"))

	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <transaction-id>",
		Short: "Show a transaction and its processing trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/transactions/"+args[0], nil)
		},
	}
}

func decisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decisions <transaction-id>",
		Short: "List decision history for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/transactions/"+args[0]+"/decisions", nil)
		},
	}
}

func workflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Workflow operations",
	}

	getCmd := &cobra.Command{
		Use:   "get <workflow-id>",
		Short: "Show a workflow checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/workflows/"+args[0], nil)
		},
	}

	var (
		verdict  string
		actor    string
		reason   string
		approved bool
	)

	reviewCmd := &cobra.Command{
		Use:   "review <workflow-id>",
		Short: "Signal a reviewer verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodPost, "/api/v1/workflows/"+args[0]+"/signals/review", map[string]any{
				"decision": verdict,
				"actor":    actor,
				"reason":   reason,
			})
		},
	}
	reviewCmd.Flags().StringVar(&verdict, "decision", "", "Review decision (approve, deny, escalate)")
	reviewCmd.Flags().StringVar(&actor, "actor", "", "Reviewer identifier")
	reviewCmd.Flags().StringVar(&reason, "reason", "", "Review notes")
	cobra.CheckErr(reviewCmd.MarkFlagRequired("decision"))
	cobra.CheckErr(reviewCmd.MarkFlagRequired("actor"))

	approveCmd := &cobra.Command{
		Use:   "approve <workflow-id>",
		Short: "Signal a manager approval or denial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodPost, "/api/v1/workflows/"+args[0]+"/signals/manager-approval", map[string]any{
				"approved": approved,
				"actor":    actor,
				"reason":   reason,
			})
		},
	}
	approveCmd.Flags().BoolVar(&approved, "approved", false, "Whether the manager approves")
	approveCmd.Flags().StringVar(&actor, "actor", "", "Manager identifier")
	approveCmd.Flags().StringVar(&reason, "reason", "", "Approval notes")
	cobra.CheckErr(approveCmd.MarkFlagRequired("actor"))

	overrideCmd := &cobra.Command{
		Use:   "override <workflow-id>",
		Short: "Signal a manual override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodPost, "/api/v1/workflows/"+args[0]+"/signals/override", map[string]any{
				"decision": verdict,
				"actor":    actor,
				"reason":   reason,
			})
		},
	}
	overrideCmd.Flags().StringVar(&verdict, "decision", "", "Override decision")
	overrideCmd.Flags().StringVar(&actor, "actor", "", "Operator identifier")
	overrideCmd.Flags().StringVar(&reason, "reason", "", "Override notes")
	cobra.CheckErr(overrideCmd.MarkFlagRequired("decision"))
	cobra.CheckErr(overrideCmd.MarkFlagRequired("actor"))

	cmd.AddCommand(getCmd, reviewCmd, approveCmd, overrideCmd)
	return cmd
}

func reviewsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List pending human reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, fmt.Sprintf("/api/v1/reviews/?limit=%d", limit), nil)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of reviews to list")

	return cmd
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	var (
		number    string
		owner     string
		currency  string
		balance   string
		overdraft string
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a ledger account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodPost, "/api/v1/accounts/", map[string]any{
				"account_number":  number,
				"owner_name":      owner,
				"currency":        currency,
				"opening_balance": balance,
				"overdraft_limit": overdraft,
			})
		},
	}
	createCmd.Flags().StringVar(&number, "number", "", "Account number")
	createCmd.Flags().StringVar(&owner, "owner", "", "Owner name")
	createCmd.Flags().StringVar(&currency, "currency", "USD", "Currency code")
	createCmd.Flags().StringVar(&balance, "balance", "0", "Opening balance")
	createCmd.Flags().StringVar(&overdraft, "overdraft", "0", "Overdraft limit")
	cobra.CheckErr(createCmd.MarkFlagRequired("number"))

	getCmd := &cobra.Command{
		Use:   "get <account-number>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/accounts/"+args[0], nil)
		},
	}

	cmd.AddCommand(createCmd, getCmd)
	return cmd
}

// doRequest performs an HTTP call against the API and prints the JSON
// response.
func doRequest(method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	printJSON(decoded)
	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render response: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

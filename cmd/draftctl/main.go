// draftctl inspects exported drafts and talks to a running draft server.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/draft-bot/internal/dispatch"
	"github.com/DoyleJ11/draft-bot/internal/export"
	"github.com/DoyleJ11/draft-bot/internal/render"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "draftctl",
		Short:         "Inspect exported drafts and send chat lines to a draft server",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newShowCmd(), newSendCmd())
	return root
}

func newShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print an exported draft as a teams table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(args[0]), ".")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			snap, err := export.Decode(data, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Draft %s in %s (%s, %d rounds, %s)\n", snap.SessionID, snap.Scope, snap.State, snap.Rounds, snap.Policy)
			if len(snap.Teams) == 0 {
				fmt.Fprintln(out, "No participants.")
				return nil
			}
			fmt.Fprintln(out, render.TeamsTable(snap.Teams))
			if len(snap.Undrafted) > 0 {
				fmt.Fprintf(out, "Undrafted: %s\n", strings.Join(snap.Undrafted, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from the file extension)")
	return cmd
}

func newSendCmd() *cobra.Command {
	var (
		server  string
		scope   string
		sender  string
		name    string
		owner   bool
		admin   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send <text>...",
		Short: "Post a chat line to a scope, as if typed by sender",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sender == "" {
				return errors.New("--sender is required")
			}
			body, err := json.Marshal(dispatch.Envelope{
				SenderID:   sender,
				SenderName: name,
				Text:       strings.Join(args, " "),
				IsOwner:    owner,
				IsAdmin:    admin,
			})
			if err != nil {
				return err
			}

			endpoint := strings.TrimRight(server, "/") + "/scopes/" + url.PathEscape(scope) + "/messages"
			client := &http.Client{Timeout: timeout}
			res, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("post message: %w", err)
			}
			defer res.Body.Close()

			switch res.StatusCode {
			case http.StatusNoContent:
				return nil
			case http.StatusOK:
			default:
				msg, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
				return fmt.Errorf("server returned %s: %s", res.Status, strings.TrimSpace(string(msg)))
			}

			var reply struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}
			if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
				return fmt.Errorf("decode reply: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			if reply.Type == "Error" {
				return errors.New("command failed")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&server, "server", "http://localhost:8080", "draft server base URL")
	f.StringVar(&scope, "scope", "general", "channel the draft runs in")
	f.StringVar(&sender, "sender", "", "sender id")
	f.StringVar(&name, "name", "", "sender display name")
	f.BoolVar(&owner, "owner", false, "mark the sender as a channel owner")
	f.BoolVar(&admin, "admin", false, "mark the sender as an admin")
	f.DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

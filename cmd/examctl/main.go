package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/org/examvault/internal/auth"
	"github.com/org/examvault/pkg/models"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "examctl",
	Short: "examvault CLI",
	Long:  "A CLI for storing and retrieving exam platform files through examvault.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(uploadCmd(), getCmd(), urlCmd(), signedURLCmd(), deleteCmd(), auditCmd(), loginCmd(), tokenCmd())
}

func filePath(folder, name string) string {
	return "/v1/files/" + url.PathEscape(folder) + "/" + url.PathEscape(name)
}

func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <folder> <file>",
		Short: "Upload a file into a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().upload("/v1/files/"+url.PathEscape(args[0]), args[1])
			if err != nil {
				printError(err.Error())
				return err
			}
			printResult(result)
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <folder> <name>",
		Short: "Download a stored file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = args[1]
			}
			f, err := os.Create(out)
			if err != nil {
				printError(err.Error())
				return err
			}
			n, err := newClient().download(filePath(args[0], args[1]), f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(out) //nolint:errcheck
				printError(err.Error())
				return err
			}
			printSuccess(fmt.Sprintf("Wrote %d bytes to %s", n, out))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Destination path (default: the object name)")
	return cmd
}

func urlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <folder> <name>",
		Short: "Print the public URL of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().get(filePath(args[0], args[1]) + "/url")
			if err != nil {
				printError(err.Error())
				return err
			}
			printResult(result)
			return nil
		},
	}
}

func signedURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signed-url <folder> <name>",
		Short: "Issue a temporary read link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, _ := cmd.Flags().GetInt("hours")
			path := filePath(args[0], args[1]) + "/signed-url?hours=" + strconv.Itoa(hours)
			result, err := newClient().get(path)
			if err != nil {
				printError(err.Error())
				return err
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().Int("hours", 1, "Link lifetime in hours")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <folder> <name>",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().delete(filePath(args[0], args[1])); err != nil {
				printError(err.Error())
				return err
			}
			printSuccess("Success! Deleted " + args[0] + "/" + args[1])
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for _, name := range []string{"event", "principal_id", "path", "since"} {
				if v, _ := cmd.Flags().GetString(name); v != "" {
					q.Set(name, v)
				}
			}
			limit, _ := cmd.Flags().GetInt("limit")
			q.Set("limit", strconv.Itoa(limit))

			result, err := newClient().get("/v1/sys/audit-log?" + q.Encode())
			if err != nil {
				printError(err.Error())
				return err
			}
			if data, ok := result["data"].([]any); ok {
				printList(data)
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().String("event", "", "Filter by event, e.g. object.delete")
	cmd.Flags().String("principal_id", "", "Filter by principal id")
	cmd.Flags().String("path", "", "Filter by request path prefix")
	cmd.Flags().String("since", "", "Only records at or after this RFC3339 time")
	cmd.Flags().Int("limit", 50, "Maximum records")
	return cmd
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <token>",
		Short: "Store a bearer token in the CLI config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Token = args[0]
			if addr, _ := cmd.Flags().GetString("address"); addr != "" {
				cfg.Address = addr
			}
			if err := saveConfig(); err != nil {
				printError(err.Error())
				return err
			}
			printSuccess("Success! Token saved to " + configPath())
			return nil
		},
	}
	cmd.Flags().String("address", "", "Server address to save alongside the token")
	return cmd
}

// tokenCmd signs a development token locally with the server's auth secret.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <principal-id> <role>",
		Short: "Sign a token locally (development only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("EXAMVAULT_AUTH_SECRET")
			if secret == "" {
				err := fmt.Errorf("EXAMVAULT_AUTH_SECRET must be set")
				printError(err.Error())
				return err
			}
			issuer, _ := cmd.Flags().GetString("issuer")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			a, err := auth.NewAuthenticator(secret, issuer)
			if err != nil {
				printError(err.Error())
				return err
			}
			tok, err := a.Issue(models.Principal{ID: args[0], Role: args[1]}, ttl)
			if err != nil {
				printError(err.Error())
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().String("issuer", "examvault", "Token issuer")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/peter-marien/grindsync/internal/config"
	"github.com/peter-marien/grindsync/internal/model"
)

var (
	connAddName  string
	connAddURL   string
	connAddEmail string
	connAddToken string
)

var connectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Manage Jira connections",
}

var connectionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a new Jira connection",
	Args:  cobra.NoArgs,
	RunE:  runConnectionAdd,
}

var connectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored connections",
	Args:  cobra.NoArgs,
	RunE:  runConnectionList,
}

var connectionRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a stored connection",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionRemove,
}

var connectionTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Probe a connection's credentials against the Jira instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectionTest,
}

func init() {
	connectionAddCmd.Flags().StringVar(&connAddName, "name", "", "Display name for the connection (required)")
	connectionAddCmd.Flags().StringVar(&connAddURL, "url", "", "Server URL, e.g. https://acme.atlassian.net (required)")
	connectionAddCmd.Flags().StringVar(&connAddEmail, "email", "", "Account email (required)")
	connectionAddCmd.Flags().StringVar(&connAddToken, "token", "", "API token (required)")
	_ = connectionAddCmd.MarkFlagRequired("name")
	_ = connectionAddCmd.MarkFlagRequired("url")
	_ = connectionAddCmd.MarkFlagRequired("email")
	_ = connectionAddCmd.MarkFlagRequired("token")

	connectionCmd.AddCommand(connectionAddCmd)
	connectionCmd.AddCommand(connectionListCmd)
	connectionCmd.AddCommand(connectionRemoveCmd)
	connectionCmd.AddCommand(connectionTestCmd)
}

func runConnectionAdd(cmd *cobra.Command, args []string) error {
	b, err := openStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer b.Close()

	conns, err := b.Connections()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Names are not forced unique (work items reference connections by
	// name), but warn because duplicates make that linkage ambiguous.
	for _, c := range conns {
		if c.Name == connAddName {
			fmt.Fprintf(os.Stderr, "Warning: a connection named %q already exists; work items resolve the first match\n", connAddName)
			break
		}
	}

	conns = append(conns, model.Connection{
		ID:        uuid.New(),
		Name:      connAddName,
		ServerURL: connAddURL,
		Email:     connAddEmail,
		APIToken:  connAddToken,
	})
	if err := b.SaveConnections(conns); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Stored connection %q (%s)\n", connAddName, connAddURL)
	return nil
}

func runConnectionList(cmd *cobra.Command, args []string) error {
	b, err := openStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer b.Close()

	conns, err := b.Connections()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(conns) == 0 {
		fmt.Println("No connections stored. Add one with: grindsync connection add")
		return nil
	}

	for _, c := range conns {
		fmt.Printf("%-20s %-40s %s\n", c.Name, c.ServerURL, c.Email)
	}
	return nil
}

func runConnectionRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	b, err := openStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer b.Close()

	conns, err := b.Connections()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	kept := conns[:0]
	removed := 0
	for _, c := range conns {
		if c.Name == name {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	if removed == 0 {
		fmt.Fprintf(os.Stderr, "No connection named %q.\n", name)
		os.Exit(1)
	}

	if err := b.SaveConnections(kept); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Printf("Removed %d connection(s) named %q\n", removed, name)
	return nil
}

func runConnectionTest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	b, err := openStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer b.Close()

	conn, err := resolveConnection(b, args[0], cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ok, err := dialConnection(conn).TestConnection(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if !ok {
		fmt.Printf("✗ Authentication failed for %q (%s)\n", conn.Name, conn.ServerURL)
		os.Exit(1)
	}
	fmt.Printf("✓ Connection %q OK (%s)\n", conn.Name, conn.ServerURL)
	return nil
}

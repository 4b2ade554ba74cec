package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harun/parley/pkg/client"
)

var (
	chatHost    string
	chatName    string
	chatNoColor bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [port]",
	Short: "Join a chat hub from the terminal",
	Long: `Join a running Parley hub as an interactive terminal client.
Prompts for a username, then relays typed lines to the room. Type /list
to see who is online and /quit to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatHost, "host", client.DefaultHost, "hub host to connect to")
	chatCmd.Flags().StringVar(&chatName, "name", "", "username to join with (prompted when empty)")
	chatCmd.Flags().BoolVar(&chatNoColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	port := client.DefaultPort
	if len(args) == 1 {
		p, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[0], err)
		}
		port = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Options{
		Host:   chatHost,
		Port:   port,
		Name:   chatName,
		Colors: !chatNoColor,
		Logger: zerolog.Nop(),
	})

	return c.Run(ctx)
}

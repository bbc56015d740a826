package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/hse-assistant/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat in the terminal",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mon := openMonitor(a.Config)
	defer mon.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "Initializing the system...")
	if !a.System.Initialize(cmd.Context()) {
		return fmt.Errorf("initialization failed: %s", a.System.Status().Error)
	}
	return tui.Run(cmd.Context(), a.System, mon)
}

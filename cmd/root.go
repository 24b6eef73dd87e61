package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eratosthenes",
	Short: "Eratosthenes - real-time geography guessing game server",
	Long: `Eratosthenes serves the rooms and round state for a real-time,
multiplayer geography guessing game over HTTP and WebSocket.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Global flags can be added here
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (not read; serve loads .env from the working directory)")
}

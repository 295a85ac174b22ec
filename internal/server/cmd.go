package server

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "1.0.0" // Set during build with -ldflags

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "miniredis-server",
	Short:   "miniredis - a single-node, in-memory key/value server",
	Long:    `miniredis is a single-node, in-memory key/value server speaking a small, recursive, type-tagged wire protocol over TCP.`,
	Version: version,
	RunE:    runServer,
}

// runServer starts the miniredis server.
func runServer(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Printf("Starting miniredis server v%s\n", version)
	fmt.Printf("Listening on %s:%d\n", config.Host, config.Port)
	fmt.Printf("Max clients: %d\n", config.MaxClients)
	fmt.Printf("Log level: %s\n", config.LogLevel)
	fmt.Println(strings.Repeat("=", 51))

	srv := NewServer(config.Port)
	srv.SetConfig(config)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	<-sigChan
	fmt.Println("\nShutting down miniredis server...")
	srv.Stop()
	fmt.Println("miniredis server stopped")

	return nil
}

// configCmd shows the current configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		fmt.Println("miniredis Configuration:")
		fmt.Println(strings.Repeat("=", 31))
		fmt.Printf("Host: %s\n", config.Host)
		fmt.Printf("Port: %d\n", config.Port)
		fmt.Printf("Max Clients: %d\n", config.MaxClients)
		fmt.Printf("Log Level: %s\n", config.LogLevel)
		fmt.Printf("Read Timeout: %v\n", config.ReadTimeout)
		fmt.Printf("Write Timeout: %v\n", config.WriteTimeout)
		return nil
	},
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("miniredis server v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("host", "H", "127.0.0.1", "Host to bind to")
	rootCmd.PersistentFlags().IntP("port", "p", 31337, "Port to listen on")
	rootCmd.PersistentFlags().Int("max-clients", 64, "Maximum number of concurrent clients")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().Duration("read-timeout", 30*time.Second, "Read timeout")
	rootCmd.PersistentFlags().Duration("write-timeout", 30*time.Second, "Write timeout")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("max_clients", rootCmd.PersistentFlags().Lookup("max-clients"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("read_timeout", rootCmd.PersistentFlags().Lookup("read-timeout"))
	viper.BindPFlag("write_timeout", rootCmd.PersistentFlags().Lookup("write-timeout"))

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the CLI entry point, called from cmd/miniredis-server/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

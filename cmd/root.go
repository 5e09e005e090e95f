// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mozilla/mozci-go/internal/config"
)

var cfgFile string
var debugMode bool

// debugLogFile is the file handle for debug logging
var debugLogFile *os.File
var debugLogMu sync.Mutex
var debugLogInitOnce sync.Once

// sessionID tags every debug log session so concurrent runs can be told apart
var sessionID = uuid.New().String()[:8]

// initDebugLogFile initializes the debug log file
func initDebugLogFile() {
	logDir := filepath.Join(config.Dir(), "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return
	}

	logPath := filepath.Join(logDir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}

	debugLogFile = f

	// Write session header
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(debugLogFile, "\n=== Debug session %s started: %s ===\n", sessionID, timestamp)
}

// Debug prints a message if debug mode is enabled and writes to log file
func Debug(format string, args ...interface{}) {
	if debugMode {
		timestamp := time.Now().Format("2006-01-02 15:04:05.000")
		msg := fmt.Sprintf(format, args...)

		// Stdout carries command output, so debug goes to stderr
		fmt.Fprintf(os.Stderr, "[DEBUG] %s\n", msg)

		debugLogMu.Lock()
		debugLogInitOnce.Do(initDebugLogFile)
		if debugLogFile != nil {
			fmt.Fprintf(debugLogFile, "[%s] %s\n", timestamp, msg)
		}
		debugLogMu.Unlock()
	}
}

// logActivity is handed to internal packages as their LogFn
func logActivity(level, msg string) {
	switch level {
	case "debug":
		Debug("%s", msg)
	case "warning", "error":
		fmt.Fprintf(os.Stderr, "%s\n", warnColor.Sprint(msg))
		Debug("[%s] %s", level, msg)
	default:
		if debugMode {
			Debug("%s", msg)
		}
	}
}

// loadConfig reads the file given by --config, or the default one if present
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile, true)
	}
	return config.Load(config.DefaultPath(), false)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mozci",
	Short: "mozci looks up Mozilla CI jobs in the buildjson snapshots",
	Long: `A CLI for finding the metadata of finished CI jobs in the buildjson
snapshots published by Release Engineering, and for summarizing job states.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugMode {
			// Log the full command that was run
			fullCmd := cmd.CommandPath()
			cmd.Flags().Visit(func(f *pflag.Flag) {
				if f.Name == "debug" {
					return
				}
				if f.Value.Type() == "bool" {
					fullCmd += " --" + f.Name
				} else {
					fullCmd += " --" + f.Name + "=" + f.Value.String()
				}
			})
			if len(args) > 0 {
				fullCmd += " " + strings.Join(args, " ")
			}
			Debug("command: %s", fullCmd)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "%s %v\n", badColor.Sprint("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mozci/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug output")
}

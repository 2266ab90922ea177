package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/learnboard/learnboard/config"
	"github.com/learnboard/learnboard/dashboard"
	"github.com/learnboard/learnboard/dashboard/console"
	"github.com/learnboard/learnboard/logger"
	"github.com/learnboard/learnboard/upstream"
	"github.com/learnboard/learnboard/web"
	"github.com/learnboard/learnboard/web/service"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func initLogger() {
	level, err := logger.ParseLevel(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
}

func runWebServer() {
	log.Printf("Starting %v %v", config.GetName(), config.GetVersion())
	initLogger()
	defer logger.CloseLogger()

	server := web.NewServer()
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("Received SIGHUP signal. Restarting server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			logger.Info("Shutting down server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

// readPassword prompts on the terminal without echo, or reads one line when
// stdin is not a terminal.
func readPassword() (string, error) {
	if pass := os.Getenv("LB_PASSWORD"); pass != "" {
		return pass, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func showProfile(user, proxyURL string, timeout, watch time.Duration) error {
	initLogger()
	defer logger.CloseLogger()

	var transport dashboard.Transport
	if proxyURL != "" {
		transport = dashboard.NewProxyTransport(proxyURL, timeout)
	} else {
		settingService := service.SettingService{}
		signInURL, err := settingService.GetSignInURL()
		if err != nil {
			return err
		}
		graphqlURL, err := settingService.GetGraphQLURL()
		if err != nil {
			return err
		}
		transport = dashboard.NewDirectTransport(upstream.NewClient(signInURL, graphqlURL, timeout))
	}

	pass, err := readPassword()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := console.New(os.Stdout)
	app := dashboard.NewApp(transport, out, out)
	if err := app.SubmitLogin(ctx, dashboard.Credentials{User: user, Pass: pass}); err != nil {
		return err
	}
	defer app.LogOut(context.Background())

	if watch <= 0 {
		return nil
	}
	ticker := time.NewTicker(watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := app.Refresh(ctx); err != nil && app.PromptOpen() {
				return err
			}
		}
	}
}

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Println("load .env:", err)
	}

	var rootCmd = &cobra.Command{
		Use:           config.GetName(),
		Short:         "Learning-progress dashboard and session proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the session proxy",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Sign in and print the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			proxyURL, _ := cmd.Flags().GetString("proxy")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			watch, _ := cmd.Flags().GetDuration("watch")
			if user == "" {
				return errors.New("--user is required")
			}
			return showProfile(user, proxyURL, timeout, watch)
		},
	}

	profileCmd.Flags().StringP("user", "u", "", "username or email")
	profileCmd.Flags().String("proxy", "", "base URL of a running learnboard proxy; empty talks to the platform directly")
	profileCmd.Flags().Duration("timeout", 30*time.Second, "timeout for each network call")
	profileCmd.Flags().Duration("watch", 0, "refresh the dashboard at this interval until interrupted")

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.GetName(), config.GetVersion())
		},
	}

	rootCmd.AddCommand(runCmd, profileCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-mc-launcher/accounts"
	"github.com/jrsteele09/go-mc-launcher/authflow"
	"github.com/jrsteele09/go-mc-launcher/backendcli"
	"github.com/jrsteele09/go-mc-launcher/internal/config"
	"github.com/jrsteele09/go-mc-launcher/msa"
)

const usageText = `usage:
  launcher login <username>        authenticate a Microsoft account
  launcher refresh <username>      renew a stored session without a device code
  launcher accounts list           list stored accounts
  launcher accounts create <name>  create an offline account
  launcher accounts remove <name>  remove an account
  launcher accounts default <name> set the default account
`

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("launcher failed")
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	c := config.New()
	setupLogging(c)

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Print(usageText)
		return nil
	}

	store := accounts.NewStore(c.GetAccountsFile())

	switch args[0] {
	case "login":
		if len(args) != 2 {
			return errors.New("login requires a username")
		}
		displayAppname(c.GetAppName())
		return login(c, store, args[1])
	case "refresh":
		if len(args) != 2 {
			return errors.New("refresh requires a username")
		}
		return refresh(c, store, args[1])
	case "accounts":
		return manageAccounts(store, args[1:])
	default:
		fmt.Print(usageText)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func login(c config.Config, store *accounts.Store, username string) error {
	transport, err := buildTransport(c, store, username)
	if err != nil {
		return err
	}

	flow := authflow.New(username, store, transport)
	if err := flow.Start(context.Background()); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	stdin := bufio.NewReader(os.Stdin)
	needsConfirmation := transport.RequiresConfirmation()

	for {
		select {
		case <-stop:
			fmt.Println("\nCancelling authentication...")
			flow.Cancel()
			flow.Wait()
			return nil

		case ev := <-flow.Events():
			switch ev.Kind {
			case authflow.EventCodeReady:
				fmt.Printf("\nTo authenticate your Microsoft account:\n")
				fmt.Printf("  1. Visit %s\n", ev.VerificationURI)
				fmt.Printf("  2. Enter the code: %s\n\n", ev.UserCode)
				if needsConfirmation {
					waitForEnter(stdin, flow)
				} else {
					fmt.Println("Waiting for you to finish in the browser...")
				}

			case authflow.EventPendingRetry:
				fmt.Println("Not finished yet - complete the sign-in in your browser first.")
				if needsConfirmation {
					waitForEnter(stdin, flow)
				}

			case authflow.EventCompleted:
				flow.Wait()
				if !ev.Success {
					return fmt.Errorf("authentication failed: %w", ev.Err)
				}
				fmt.Printf("Successfully authenticated account: %s\n", username)
				return nil
			}
		}
	}
}

func refresh(c config.Config, store *accounts.Store, username string) error {
	acc, err := store.Get(username)
	if err != nil {
		return err
	}
	if !acc.Authenticated {
		return fmt.Errorf("account %q has never authenticated, run login first", username)
	}
	if !msa.TokenExpired(acc.AccessToken, 5*time.Minute) {
		fmt.Println("Session still valid, nothing to do.")
		return nil
	}

	client := msa.NewClient(msa.WithClientID(c.GetClientID()))
	session, err := client.RefreshSession(context.Background(), acc.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	if err := store.CommitAuthentication(username, accounts.AuthResult{
		AccessToken:  session.GameAccessToken,
		RefreshToken: session.RefreshToken,
		ProfileID:    session.Profile.ID,
		ProfileName:  session.Profile.Name,
	}); err != nil {
		return err
	}
	fmt.Printf("Session renewed for %s\n", session.Profile.Name)
	return nil
}

func manageAccounts(store *accounts.Store, args []string) error {
	if len(args) == 0 {
		return errors.New("accounts requires a subcommand")
	}

	switch args[0] {
	case "list":
		names, err := store.List()
		if err != nil {
			return err
		}
		def, err := store.Default()
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		for _, name := range names {
			marker := " "
			if name == def {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, name)
		}
		return nil
	case "create":
		if len(args) != 2 {
			return errors.New("create requires a username")
		}
		return store.CreateOffline(args[1])
	case "remove":
		if len(args) != 2 {
			return errors.New("remove requires a username")
		}
		return store.Remove(args[1])
	case "default":
		if len(args) != 2 {
			return errors.New("default requires a username")
		}
		return store.SetDefault(args[1])
	default:
		return fmt.Errorf("unknown accounts subcommand %q", args[0])
	}
}

func buildTransport(c config.Config, store *accounts.Store, username string) (authflow.Transport, error) {
	switch c.GetAuthTransport() {
	case config.TransportBackend:
		runner := backendcli.NewRunner(c.GetBackendCommand())
		return backendcli.NewSubprocessTransport(runner, store, username), nil
	case config.TransportHTTP:
		return authflow.NewHTTPTransport(msa.NewClient(msa.WithClientID(c.GetClientID()))), nil
	default:
		return nil, fmt.Errorf("unknown auth transport %q", c.GetAuthTransport())
	}
}

// waitForEnter hands control back to the flow once the user hits return.
// Runs on its own goroutine so event delivery is never blocked on stdin.
func waitForEnter(stdin *bufio.Reader, flow *authflow.Flow) {
	fmt.Print("Press Enter once you have completed authentication... ")
	go func() {
		_, _ = stdin.ReadString('\n')
		flow.ConfirmAndContinue()
	}()
}

func setupLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tahcohcat/gamify-web/config"
	"github.com/tahcohcat/gamify-web/internal/clientsync"
	"github.com/tahcohcat/gamify-web/internal/logger"
	"github.com/tahcohcat/gamify-web/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	baseURL := flag.String("url", cfg.Client.BaseURL, "Base URL of the Gamify server")
	token := flag.String("token", "", "Bearer token (skips login)")
	username := flag.String("user", "", "Username to log in with")
	password := flag.String("password", "", "Password for -user")
	action := flag.String("action", "action", "Action type sent with each earn")
	amount := flag.Int("amount", 0, "XP per earn (0 uses the server default)")
	logPath := flag.String("log", "", "Write logs to this file")
	flag.Parse()

	// The terminal belongs to the UI; logs go to a file or nowhere.
	logger.SetOutput(io.Discard)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	client := clientsync.NewClient(*baseURL, *token)
	name, err := signIn(client, *token, *username, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", clientsync.NoticeText(err))
		logger.New().WithError(err).Error("Sign in failed")
		os.Exit(1)
	}

	m := tui.New(client, tui.Options{
		Username: name,
		Action:   *action,
		Amount:   *amount,
		Timings:  clientsync.TimingsFromConfig(cfg.Client),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signIn uses the token as given, a password login when a user is named,
// or the demo account otherwise.
func signIn(client *clientsync.Client, token, username, password string) (string, error) {
	if token != "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if username != "" {
		if err := client.Login(ctx, username, password); err != nil {
			return "", err
		}
	} else if err := client.Demo(ctx); err != nil {
		return "", err
	}
	logger.New().With("user", client.User().Username).Info("Signed in")
	return client.User().DisplayName, nil
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/martinramirez09/aiblog/internal/client"
)

const defaultBaseURL = "http://localhost:8000"

// CLIConfig holds the CLI client state persisted to disk.
type CLIConfig struct {
	BaseURL  string `json:"base_url"`
	Email    string `json:"email"`
	Token    string `json:"token"`
	TokenExp string `json:"token_expires"`
}

var (
	flagServer   string
	flagEmail    string
	flagPassword string
	flagLimit    int
	flagJSON     bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an author and log in",
	Example: `  aiblog register --email me@example.com --password secret
  aiblog register --server https://api.example.com --email me@example.com --password secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagEmail == "" || flagPassword == "" {
			return errors.New("--email and --password are required")
		}
		cfg, _ := loadCLIConfig()
		cfg.BaseURL = baseURL(cfg)

		c := client.New(cfg.BaseURL)
		author, err := c.Register(flagEmail, flagPassword)
		switch {
		case errors.Is(err, client.ErrAlreadyRegistered):
			fmt.Fprintf(cmd.OutOrStdout(), "%s is already registered, logging in\n", flagEmail)
		case err != nil:
			return err
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered %s (id %d)\n", author.Email, author.ID)
		}

		if err := c.Login(flagEmail, flagPassword); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		return saveSession(cmd, cfg, c)
	},
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Get a fresh access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadCLIConfig()
		if flagEmail == "" {
			flagEmail = cfg.Email
		}
		if flagEmail == "" || flagPassword == "" {
			return errors.New("--email and --password are required")
		}
		cfg.BaseURL = baseURL(cfg)

		c := client.New(cfg.BaseURL)
		if err := c.Login(flagEmail, flagPassword); err != nil {
			return err
		}
		return saveSession(cmd, cfg, c)
	},
}

var generateCmd = &cobra.Command{
	Use:     "generate <prompt>",
	Aliases: []string{"post"},
	Short:   "Generate and publish a post from a prompt",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadAuthenticatedClient()
		if err != nil {
			return err
		}
		post, err := c.GeneratePost(strings.Join(args, " "))
		if err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				return fmt.Errorf("%w - run 'aiblog login'", err)
			}
			return err
		}
		if flagJSON {
			return printJSON(cmd, post)
		}
		printPost(cmd, *post)
		return nil
	},
}

var postsCmd = &cobra.Command{
	Use:     "posts",
	Aliases: []string{"read", "list"},
	Short:   "List posts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadCLIConfig()
		c := client.New(baseURL(cfg))
		posts, err := c.ListPosts()
		if err != nil {
			return err
		}
		if flagLimit > 0 && len(posts) > flagLimit {
			posts = posts[:flagLimit]
		}
		if flagJSON {
			return printJSON(cmd, posts)
		}
		out := cmd.OutOrStdout()
		if len(posts) == 0 {
			fmt.Fprintln(out, "No posts yet")
			return nil
		}
		for i, p := range posts {
			fmt.Fprintf(out, "%d. %s\n", i+1, p.Title)
			fmt.Fprintf(out, "   #%d | author %d | %s\n", p.ID, p.AuthorID, p.CreatedAt.Local().Format(time.RFC1123))
			if p.SEODescription != nil && *p.SEODescription != "" {
				fmt.Fprintf(out, "   %s\n", *p.SEODescription)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid post id %q", args[0])
		}
		cfg, _ := loadCLIConfig()
		post, err := client.New(baseURL(cfg)).GetPost(id)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, post)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n  #%d | author %d | %s\n\n%s\n", post.Title, post.ID, post.AuthorID, post.CreatedAt.Local().Format(time.RFC1123), post.Body)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"whoami"},
	Short:   "Show server health and token status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg, err := loadCLIConfig()
		base := baseURL(cfg)

		fmt.Fprintf(out, "Server: %s", base)
		if herr := client.New(base).Health(); herr != nil {
			fmt.Fprintf(out, " (unreachable: %v)\n", herr)
		} else {
			fmt.Fprintln(out, " (ok)")
		}

		if err != nil || cfg.Token == "" {
			fmt.Fprintln(out, "Token:  Not authenticated")
			fmt.Fprintln(out, "\nRun: aiblog register --email <email> --password <password>")
			return nil
		}
		fmt.Fprintf(out, "Author: %s\n", cfg.Email)
		exp, _ := time.Parse(time.RFC3339, cfg.TokenExp)
		if time.Now().After(exp) {
			fmt.Fprintln(out, "Token:  Expired")
			fmt.Fprintln(out, "\nRun: aiblog login --password <password>")
		} else {
			fmt.Fprintf(out, "Token:  Valid until %s\n", cfg.TokenExp)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd, generateCmd, postsCmd, showCmd, statusCmd} {
		c.Flags().StringVar(&flagServer, "server", "", "API base URL (default "+defaultBaseURL+")")
	}
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&flagEmail, "email", "", "author email")
		c.Flags().StringVar(&flagPassword, "password", "", "author password")
	}
	postsCmd.Flags().IntVar(&flagLimit, "limit", 0, "show at most this many posts")
	postsCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
	generateCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
	showCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")

	rootCmd.AddCommand(registerCmd, loginCmd, generateCmd, postsCmd, showCmd, statusCmd)
}

func printPost(cmd *cobra.Command, p client.Post) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Published #%d\n\n%s\n\n%s\n", p.ID, p.Title, p.Body)
	if p.SEODescription != nil && *p.SEODescription != "" {
		fmt.Fprintf(out, "\nSEO: %s\n", *p.SEODescription)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func saveSession(cmd *cobra.Command, cfg CLIConfig, c *client.Client) error {
	cfg.Email = flagEmail
	cfg.Token = c.Token
	cfg.TokenExp = c.TokenExp.UTC().Format(time.RFC3339)
	if err := saveCLIConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in, token valid until %s\n", cfg.TokenExp)
	return nil
}

func baseURL(cfg CLIConfig) string {
	switch {
	case flagServer != "":
		return strings.TrimSuffix(flagServer, "/")
	case os.Getenv("AIBLOG_URL") != "":
		return strings.TrimSuffix(os.Getenv("AIBLOG_URL"), "/")
	case cfg.BaseURL != "":
		return cfg.BaseURL
	}
	return defaultBaseURL
}

func cliConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aiblog", "config.json")
}

func loadCLIConfig() (CLIConfig, error) {
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		return CLIConfig{}, errors.New("not initialized")
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func saveCLIConfig(cfg CLIConfig) error {
	path := cliConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	return os.WriteFile(path, data, 0600)
}

func loadAuthenticatedClient() (*client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, errors.New("not logged in - run 'aiblog register' or 'aiblog login'")
	}
	if cfg.Token == "" {
		return nil, errors.New("not authenticated - run 'aiblog login'")
	}

	c := client.New(baseURL(cfg))
	c.Token = cfg.Token
	c.TokenExp, _ = time.Parse(time.RFC3339, cfg.TokenExp)
	if !c.IsAuthenticated() {
		return nil, errors.New("token expired - run 'aiblog login'")
	}
	return c, nil
}

// Package gamectl implements the admin command line client.
package gamectl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/louisbranch/pecking-order/internal/platform/config"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/orchestrator"
)

// Config holds defaults for the persistent flags.
type Config struct {
	API   string `env:"GAMECTL_API" envDefault:"http://localhost:8080"`
	Token string `env:"ADMIN_TOKEN"`
}

// NewRootCommand builds the gamectl command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		cfg = Config{API: "http://localhost:8080"}
	}

	root := &cobra.Command{
		Use:           "gamectl",
		Short:         "Admin client for the Pecking Order game server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfg.API, "api", "a", cfg.API, "Game server base URL")
	root.PersistentFlags().StringVarP(&cfg.Token, "token", "t", cfg.Token, "Admin bearer token")
	client := func() *Client { return NewClient(cfg.API, cfg.Token) }

	var file string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game from an init payload (JSON file or - for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readInit(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			st, err := client().CreateGame(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(out, st)
		},
	}
	createCmd.Flags().StringVarP(&file, "file", "f", "", "Init payload file (required)")
	_ = createCmd.MarkFlagRequired("file")
	root.AddCommand(createCmd)

	root.AddCommand(&cobra.Command{
		Use:   "status GAME_ID",
		Short: "Show a game's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out, st)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "advance GAME_ID",
		Short: "Advance a game to its next stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().Advance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(out, st)
		},
	})

	var payload string
	injectCmd := &cobra.Command{
		Use:   "inject GAME_ID ACTION",
		Short: "Raise a timeline action now",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := manifest.Action(strings.ToUpper(args[1]))
			if !action.Known() {
				return fmt.Errorf("unknown action %q", args[1])
			}
			var raw json.RawMessage
			if payload != "" {
				if !json.Valid([]byte(payload)) {
					return errors.New("--payload must be valid JSON")
				}
				raw = json.RawMessage(payload)
			}
			st, err := client().Inject(cmd.Context(), args[0], action, raw)
			if err != nil {
				return err
			}
			return printJSON(out, st)
		},
	}
	injectCmd.Flags().StringVarP(&payload, "payload", "p", "", "Action payload as JSON")
	root.AddCommand(injectCmd)

	root.AddCommand(&cobra.Command{
		Use:   "narrate GAME_ID TEXT...",
		Short: "Post a narrator message to group chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().Narrate(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			_, err := fmt.Fprintln(out, "ok")
			return err
		},
	})

	var ttl string
	tokenCmd := &cobra.Command{
		Use:   "token GAME_ID PLAYER_ID",
		Short: "Mint a player connection token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := client().IssueToken(cmd.Context(), args[0], args[1], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, token)
			return err
		},
	}
	tokenCmd.Flags().StringVar(&ttl, "ttl", "", "Token lifetime, e.g. 24h")
	root.AddCommand(tokenCmd)

	return root
}

func readInit(stdin io.Reader, file string) (orchestrator.InitPayload, error) {
	var r io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return orchestrator.InitPayload{}, fmt.Errorf("open init payload: %w", err)
		}
		defer f.Close()
		r = f
	}
	var p orchestrator.InitPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return orchestrator.InitPayload{}, fmt.Errorf("decode init payload: %w", err)
	}
	return p, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nadzzz/signalbox/internal/config"
	"github.com/nadzzz/signalbox/internal/utterance"
)

var (
	interpretUser     string
	interpretSession  string
	interpretLanguage string
	interpretPage     string
	interpretCart     int
)

var interpretCmd = &cobra.Command{
	Use:   "interpret [transcript]",
	Short: "Interpret a single utterance and print the result",
	Long: `Run one transcribed utterance through the interpretation pipeline without
starting any transports, and print the structured result as JSON. Useful for
trying out command phrasings and debugging pattern sets.`,
	Args: cobra.ExactArgs(1),
	RunE: runInterpret,
}

func init() {
	rootCmd.AddCommand(interpretCmd)

	interpretCmd.Flags().StringVarP(&interpretUser, "user", "u", "", "Requesting user ID (empty = anonymous)")
	interpretCmd.Flags().StringVarP(&interpretSession, "session", "s", "", "Session ID (defaults to the user, else anonymous)")
	interpretCmd.Flags().StringVarP(&interpretLanguage, "language", "l", "de", "Language tag of the transcript (e.g. de, de-ch, en)")
	interpretCmd.Flags().StringVar(&interpretPage, "page", "", "Current app page for context analysis (e.g. /menu)")
	interpretCmd.Flags().IntVar(&interpretCart, "cart-items", 0, "Number of items already in the cart")
}

func runInterpret(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogging(cfg.Logging)

	engine, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	req := utterance.Request{
		ID:         uuid.NewString(),
		SessionID:  interpretSession,
		UserID:     interpretUser,
		Transcript: args[0],
		Language:   interpretLanguage,
		Timestamp:  time.Now().UTC(),
		App: utterance.AppContext{
			CurrentPage:         interpretPage,
			CartItemCount:       interpretCart,
			AuthenticatedUserID: interpretUser,
		},
	}

	result := engine.Process(cmd.Context(), req)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

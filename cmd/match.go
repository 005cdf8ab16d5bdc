package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/filtering"
	"github.com/spigell/roomie-matcher/internal/logger"
	"github.com/spigell/roomie-matcher/internal/matching"
	"github.com/spigell/roomie-matcher/internal/profile"
)

const (
	PromptDetails = "Show match details"
	PromptDismiss = "Dismiss a match"
	PromptExit    = "Exit"
	PromptBack    = "back"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank roommate candidates for a user",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("user", "u", "", "id of the user to find matches for. Asked interactively when unset")
	matchCmd.Flags().IntP("max-results", "n", 0, "maximum number of matches (default from matching.max-results)")
	matchCmd.Flags().Float64P("min-score", "s", 0, "minimum compatibility score (default from matching.min-score)")
	matchCmd.Flags().Bool("ai", false, "adjust scores with the AI provider (requires ai.enabled)")
	matchCmd.Flags().StringP("output", "o", "table", "output format: table or json")
	matchCmd.Flags().StringSlice("disable-filter", nil, "candidate filters to skip, e.g. dismissed")

	viper.BindPFlag("matching.max-results", matchCmd.Flags().Lookup("max-results"))
	viper.BindPFlag("matching.min-score", matchCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("matching.disabled-filters", matchCmd.Flags().Lookup("disable-filter"))
}

func runMatch(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	useAI, _ := cmd.Flags().GetBool("ai")
	if useAI && (config.AI == nil || !config.AI.Enabled) {
		logger.Fatal("ai matching requested but ai.enabled is false")
	}
	if !useAI && config.AI != nil {
		// Avoid dialing the provider and the cache for a rule-based run.
		config.AI.Enabled = false
	}

	built, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing matcher", zap.Error(err))
	}
	defer built.Close()

	candidates, err := built.store.List(ctx)
	if err != nil {
		logger.Fatal("listing profiles", zap.Error(err))
	}

	userID, _ := cmd.Flags().GetString("user")
	interactive := userID == ""
	if interactive {
		userID, err = pickUser(candidates)
		if err != nil {
			logger.Fatal("choosing a user", zap.Error(err))
		}
	}

	current, err := built.store.Get(ctx, userID)
	if err != nil {
		logger.Fatal("loading current user", zap.String("user", userID), zap.Error(err))
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("ranking candidates",
		zap.String("user", current.ID),
		zap.Int("candidates", len(candidates)),
		zap.Bool("use_ai", useAI),
	)

	output, _ := cmd.Flags().GetString("output")

	criteria := matching.Criteria{
		CurrentUser: current,
		Candidates:  candidates,
		MaxResults:  config.Matching.MaxResults,
		MinScore:    config.Matching.MinScore,
		UseAI:       useAI,
	}

	for {
		matches, err := built.ranker.Rank(ctx, criteria)
		if err != nil {
			logger.Fatal("ranking matches", zap.Error(err))
		}

		if err := printMatches(cmd.OutOrStdout(), output, matches); err != nil {
			logger.Fatal("printing matches", zap.Error(err))
		}

		if !interactive || len(matches) == 0 {
			return
		}

		if err := matchActions(cmd.OutOrStdout(), logger, config, current, matches); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func pickUser(candidates []*profile.Profile) (string, error) {
	if len(candidates) == 0 {
		return "", errors.New("there are no completed profiles to choose from")
	}

	items := make([]string, 0, len(candidates))
	for _, p := range candidates {
		items = append(items, fmt.Sprintf("%s %s", p.ID, p.DisplayName()))
	}

	prompt := promptui.Select{
		Label: "Who is looking for a roommate?",
		Items: items,
		Size:  10,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return candidates[idx].ID, nil
}

// matchActions returns nil to re-rank, errExit to stop.
func matchActions(w io.Writer, log *zap.Logger, config *Config, current *profile.Profile, matches []*matching.MatchResult) error {
	actions := promptui.Select{
		Label: "Next?",
		Items: []string{PromptDetails, PromptDismiss, PromptExit},
	}

	for {
		_, action, err := actions.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptExit:
			return errExit
		case PromptDetails:
			selected, err := pickMatch(matches)
			if err != nil || selected == nil {
				return err
			}
			pretty, _ := json.MarshalIndent(selected, "", "  ")
			fmt.Fprintln(w, string(pretty))
		case PromptDismiss:
			selected, err := pickMatch(matches)
			if err != nil || selected == nil {
				return err
			}
			if err := dismiss(config.Profiles.DismissFile, current.ID, selected.Profile.ID); err != nil {
				return err
			}
			log.Info("dismissed a match",
				zap.String(logger.FieldCandidate, selected.Profile.ID),
				zap.String("filename", config.Profiles.DismissFile),
			)
			return nil
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

func pickMatch(matches []*matching.MatchResult) (*matching.MatchResult, error) {
	items := make([]string, 0, len(matches)+1)
	for _, m := range matches {
		items = append(items, fmt.Sprintf("%s %s / %.1f", m.Profile.ID, m.Profile.DisplayName(), m.Score))
	}

	prompt := promptui.Select{
		Label: "Choose a match and press ENTER",
		Items: append(items, PromptBack),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return nil, err
	}
	return matchAt(matches, idx), nil
}

// matchAt maps a picker index to a match. The trailing back item maps to nil.
func matchAt(matches []*matching.MatchResult, idx int) *matching.MatchResult {
	if idx < 0 || idx >= len(matches) {
		return nil
	}
	return matches[idx]
}

func dismiss(path, userID string, profileIDs ...string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("profiles.dismiss-file is not configured")
	}

	dismissed, err := filtering.ReadDismissFile(path)
	if err != nil {
		return err
	}
	dismissed.Dismiss(userID, profileIDs...)
	return dismissed.ToFile(path)
}

func printMatches(w io.Writer, format string, matches []*matching.MatchResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	case "", "table":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, "no matches found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tSCORE\tAI\tREASONS")
	for i, m := range matches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\t%s\n",
			i+1, m.Profile.ID, m.Profile.DisplayName(), m.Score, m.AIState, strings.Join(m.Reasons, "; "))
	}
	return tw.Flush()
}

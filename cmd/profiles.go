package cmd

import (
	"context"
	"fmt"
	"log"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/logger"
	"github.com/spigell/roomie-matcher/internal/profile"
	"github.com/spigell/roomie-matcher/internal/utils"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage the local profile store",
}

var profilesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import onboarding exports (a JSON array of profiles) into the store",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		importProfiles(args[0])
	},
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles that are ready to be matched",
	Run: func(cmd *cobra.Command, _ []string) {
		listProfiles(cmd)
	},
}

var profilesDismissCmd = &cobra.Command{
	Use:   "dismiss USER_ID PROFILE_ID...",
	Short: "Hide profiles from the matches of a user",
	Args:  cobra.MinimumNArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		dismissProfiles(args[0], utils.UniqueStrings(args[1:]))
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesImportCmd, profilesListCmd, profilesDismissCmd)
}

func openStore() (*zap.Logger, *Config, profile.Store) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := profile.Open(config.Profiles.Driver, config.Profiles.Path)
	if err != nil {
		logger.Fatal("opening profile store", zap.Error(err))
	}
	return logger, config, store
}

func importProfiles(path string) {
	ctx := context.Background()
	logger, config, store := openStore()
	defer store.Close()

	profiles, err := profile.ReadFile(path)
	if err != nil {
		logger.Fatal("reading profiles", zap.String("filename", path), zap.Error(err))
	}

	imported := 0
	for _, p := range profiles {
		if p == nil || p.ID == "" {
			logger.Warn("skipping profile without id")
			continue
		}
		if err := store.Upsert(ctx, p); err != nil {
			logger.Fatal("storing profile", zap.String("id", p.ID), zap.Error(err))
		}
		imported++
	}

	logger.Info("profiles imported",
		zap.Int("count", imported),
		zap.String("driver", config.Profiles.Driver),
		zap.String("path", config.Profiles.Path),
	)
}

func listProfiles(cmd *cobra.Command) {
	logger, _, store := openStore()
	defer store.Close()

	profiles, err := store.List(context.Background())
	if err != nil {
		logger.Fatal("listing profiles", zap.Error(err))
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION")
	for _, p := range profiles {
		location := ""
		if p.BasicInfo != nil {
			location = p.BasicInfo.Location
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.DisplayName(), location)
	}
	tw.Flush()
}

func dismissProfiles(userID string, profileIDs []string) {
	logger, config, store := openStore()
	defer store.Close()

	if _, err := store.Get(context.Background(), userID); err != nil {
		logger.Fatal("loading user", zap.String("user", userID), zap.Error(err))
	}

	if err := dismiss(config.Profiles.DismissFile, userID, profileIDs...); err != nil {
		logger.Fatal("updating dismiss file", zap.Error(err))
	}

	logger.Info("profiles dismissed",
		zap.String("user", userID),
		zap.Strings("profiles", profileIDs),
		zap.String("filename", config.Profiles.DismissFile),
	)
}

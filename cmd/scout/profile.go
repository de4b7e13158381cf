package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matsen/scout/internal/chatbot"
)

var (
	profileUser    string
	profileName    string
	profileCompany string
	profileEmail   string
)

func init() {
	profileCmd.PersistentFlags().StringVar(&profileUser, "user", chatbot.DefaultUserID, "Profile user id")
	profileSetCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileSetCmd.Flags().StringVar(&profileCompany, "company", "", "Company")
	profileSetCmd.Flags().StringVar(&profileEmail, "email", "", "Email address")

	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileGetCmd)
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the user profile given to the agent",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update profile fields; unset flags keep their stored value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db := mustOpenDatabase(mustLoadConfig())
		defer db.Close()

		profile, err := db.GetProfile(ctx, profileUser)
		if err != nil {
			exitWithError(ExitError, "loading profile: %v", err)
		}
		if profile == nil {
			profile = map[string]string{}
		}
		for key, v := range map[string]string{"name": profileName, "company": profileCompany, "email": profileEmail} {
			if cmd.Flags().Changed(key) {
				profile[key] = v
			}
		}

		if err := db.SaveProfile(ctx, profileUser, profile); err != nil {
			exitWithError(ExitError, "saving profile: %v", err)
		}
		if humanOutput {
			outputHuman("Profile updated for %s\n", profileUser)
			return nil
		}
		return outputJSON(profile)
	},
}

var profileGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the stored profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db := mustOpenDatabase(mustLoadConfig())
		defer db.Close()

		profile, err := db.GetProfile(cmd.Context(), profileUser)
		if err != nil {
			exitWithError(ExitError, "loading profile: %v", err)
		}
		if profile == nil {
			profile = map[string]string{}
		}
		if !humanOutput {
			return outputJSON(profile)
		}
		if len(profile) == 0 {
			fmt.Println("No profile set.")
			return nil
		}
		keys := make([]string, 0, len(profile))
		for k := range profile {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-8s %s\n", k+":", profile[k])
		}
		return nil
	},
}

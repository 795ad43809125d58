/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/sarf14/onboarding-tool-sub001/config"
	"github.com/sarf14/onboarding-tool-sub001/internal/db"
	"github.com/sarf14/onboarding-tool-sub001/internal/services"
	"github.com/sarf14/onboarding-tool-sub001/internal/store"
	"github.com/spf13/cobra"
)

var seedUserFlags struct {
	email    string
	password string
	name     string
	roles    []string
	mentorID int
}

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create initial records",
}

var seedUserCmd = &cobra.Command{
	Use:   "user",
	Short: "Create an account",
	Long: `Create an account directly in the database. Usage:

	onboarding seed user --email admin@example.com --password s3cret-pass --name Admin --roles ADMIN
	onboarding seed user --email new@example.com --password s3cret-pass --name New --roles TRAINEE --mentor-id 2
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		input := services.NewUser{
			Email:    seedUserFlags.email,
			Name:     seedUserFlags.name,
			Password: seedUserFlags.password,
			Roles:    seedUserFlags.roles,
		}
		if seedUserFlags.mentorID > 0 {
			mentorID := seedUserFlags.mentorID
			input.MentorID = &mentorID
		}

		user, err := services.NewUserService(store.NewUserRepository(conn)).Seed(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s) with roles %v\n", user.ID, user.Email, user.Roles.Names())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedUserCmd)

	flags := seedUserCmd.Flags()
	flags.StringVar(&seedUserFlags.email, "email", "", "login email")
	flags.StringVar(&seedUserFlags.password, "password", "", "initial password")
	flags.StringVar(&seedUserFlags.name, "name", "", "display name")
	flags.StringSliceVar(&seedUserFlags.roles, "roles", nil, "comma separated roles: ADMIN, MENTOR, TRAINEE")
	flags.IntVar(&seedUserFlags.mentorID, "mentor-id", 0, "mentor of a trainee")
	_ = seedUserCmd.MarkFlagRequired("email")
	_ = seedUserCmd.MarkFlagRequired("password")
	_ = seedUserCmd.MarkFlagRequired("name")
	_ = seedUserCmd.MarkFlagRequired("roles")
}

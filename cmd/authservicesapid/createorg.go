package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/cassauth/authservicesapi/internal/authdb"
	"github.com/cassauth/authservicesapi/internal/credential"
)

var (
	createOrgParent    string
	createOrgAdmin     string
	createOrgAdminPass string
	createOrgAdminMail string
)

var createOrgCmd = &cobra.Command{
	Use:   "createorg <org>",
	Short: "Create an organization and its initial admin user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		org := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gw, authDB, _ := wire(cfg)
		defer gw.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		var parent *string
		if createOrgParent != "" {
			parent = &createOrgParent
		}
		if err := authDB.CreateOrg(ctx, org, parent, authdb.QuorumWrite); err != nil {
			return fmt.Errorf("creating org %q: %w", org, err)
		}

		if createOrgAdmin == "" {
			log.Printf("authservicesapid: org %q created, no admin user requested", org)
			return nil
		}

		if err := authDB.CreateUser(ctx, org, createOrgAdmin, createOrgAdminMail, nil, authdb.QuorumWrite); err != nil {
			return fmt.Errorf("creating admin user %q@%q: %w", createOrgAdmin, org, err)
		}
		if err := authDB.SetOrgSetting(ctx, org, "admins", fmt.Sprintf("%s@%s", createOrgAdmin, org), authdb.DefaultWrite); err != nil {
			return fmt.Errorf("setting admins for org %q: %w", org, err)
		}

		salt, err := credential.GenerateSalt()
		if err != nil {
			return err
		}
		hash, err := credential.HashPassword("argon2", createOrgAdminPass, salt, credential.DefaultParams())
		if err != nil {
			return err
		}
		if err := authDB.SetPassword(ctx, org, createOrgAdmin, hash, salt); err != nil {
			return fmt.Errorf("setting password for %q@%q: %w", createOrgAdmin, org, err)
		}

		log.Printf("authservicesapid: org %q created with admin %q@%q", org, createOrgAdmin, org)
		return nil
	},
}

func init() {
	createOrgCmd.Flags().StringVar(&createOrgParent, "parent", "", "parent organization name")
	createOrgCmd.Flags().StringVar(&createOrgAdmin, "admin", "", "username of the initial admin user")
	createOrgCmd.Flags().StringVar(&createOrgAdminPass, "admin-password-equivalent", "", "client-computed password equivalent for the admin user")
	createOrgCmd.Flags().StringVar(&createOrgAdminMail, "admin-email", "", "email address of the initial admin user")
}

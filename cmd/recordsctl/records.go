package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marwan562/provisioning-bridge/pkg/recordsclient"
)

var createReq recordsclient.CreateRecordRequest

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a record and request its account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
		defer cancel()

		res, err := newClient().CreateRecord(ctx, &createReq)
		if err != nil {
			return err
		}

		if res.Account.Status == "PENDING" {
			fmt.Fprintln(cmd.ErrOrStderr(), "account service unavailable; account will be provisioned asynchronously")
		}
		return printJSON(res)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <record-id>",
	Short: "Show a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
		defer cancel()

		rec, err := newClient().GetRecord(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var updateReq recordsclient.CreateRecordRequest

var updateCmd = &cobra.Command{
	Use:   "update <record-id>",
	Short: "Replace a record's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
		defer cancel()

		rec, err := newClient().UpdateRecord(ctx, args[0], &updateReq)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
		defer cancel()

		if err := newClient().DeleteRecord(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "record %s deleted\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createReq.Name, "name", "", "full name")
	createCmd.Flags().StringVar(&createReq.Email, "email", "", "email address")
	createCmd.Flags().StringVar(&createReq.Address, "address", "", "postal address")
	createCmd.Flags().StringVar(&createReq.DateOfBirth, "dob", "", "date of birth (YYYY-MM-DD)")
	for _, f := range []string{"name", "email", "address", "dob"} {
		cobra.CheckErr(createCmd.MarkFlagRequired(f))
	}

	updateCmd.Flags().StringVar(&updateReq.Name, "name", "", "full name")
	updateCmd.Flags().StringVar(&updateReq.Email, "email", "", "email address")
	updateCmd.Flags().StringVar(&updateReq.Address, "address", "", "postal address")
	updateCmd.Flags().StringVar(&updateReq.DateOfBirth, "dob", "", "date of birth (YYYY-MM-DD)")
	for _, f := range []string{"name", "email", "address", "dob"} {
		cobra.CheckErr(updateCmd.MarkFlagRequired(f))
	}

	rootCmd.AddCommand(createCmd, getCmd, updateCmd, deleteCmd)
}

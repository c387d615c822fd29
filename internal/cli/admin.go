package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"autoportal/pkg/repair"
	"autoportal/pkg/role"
	"autoportal/pkg/user"
)

var errNothingToUpdate = errors.New("nothing to update: pass --new-password, --email-confirmed or --role")

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator account management",
	}

	cmd.AddCommand(newCreateUserCmd(a), newUpdateUserCmd(a))

	return cmd
}

func parseRoleFlag(value string) (role.Role, error) {
	r := role.Parse(value)
	if !r.Valid() {
		return role.None, fmt.Errorf("unknown role %q (want client or admin)", value)
	}
	return r, nil
}

func newCreateUserCmd(a *app) *cobra.Command {
	var (
		form     user.CreateForm
		vehicle  repair.VehicleForm
		roleName string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account with a profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := parseRoleFlag(roleName)
			if err != nil {
				return err
			}
			form.Role = &r
			if vehicle.Make != "" || vehicle.Model != "" {
				form.Vehicle = &vehicle
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			id, err := a.client.CreateUser(ctx, form)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "Initial password")
	cmd.Flags().StringVar(&form.Username, "username", "", "Username")
	cmd.Flags().StringVar(&form.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&form.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&roleName, "role", "client", "Role: client or admin")
	cmd.Flags().StringVar(&vehicle.Make, "vehicle-make", "", "Make of the client's first vehicle")
	cmd.Flags().StringVar(&vehicle.Model, "vehicle-model", "", "Model of the client's first vehicle")
	cmd.Flags().IntVar(&vehicle.Year, "vehicle-year", 0, "Year of the client's first vehicle")
	cmd.Flags().StringVar(&vehicle.PlateNumber, "plate", "", "Plate number of the client's first vehicle")
	cmd.Flags().StringVar(&vehicle.VIN, "vin", "", "VIN of the client's first vehicle")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newUpdateUserCmd(a *app) *cobra.Command {
	var (
		newPassword    string
		emailConfirmed bool
		roleName       string
	)

	cmd := &cobra.Command{
		Use:   "update-user <id>",
		Short: "Change an account's password, email confirmation or role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var form user.UpdateForm
			if cmd.Flags().Changed("new-password") {
				form.NewPassword = &newPassword
			}
			if cmd.Flags().Changed("email-confirmed") {
				form.EmailConfirmed = &emailConfirmed
			}
			if cmd.Flags().Changed("role") {
				r, err := parseRoleFlag(roleName)
				if err != nil {
					return err
				}
				form.Role = &r
			}
			if form.Empty() {
				return errNothingToUpdate
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.client.UpdateUser(ctx, args[0], form); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated user %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&newPassword, "new-password", "", "New password")
	cmd.Flags().BoolVar(&emailConfirmed, "email-confirmed", false, "Mark the email address confirmed")
	cmd.Flags().StringVar(&roleName, "role", "", "New role: client or admin")

	return cmd
}

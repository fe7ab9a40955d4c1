package commands

import (
	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func profileCmd(rt *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Fetch the latest profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := rt.restore(ctx); err != nil {
				return err
			}
			if err := rt.service.FetchProfile(ctx); err != nil {
				return err
			}
			return rt.printProfile(rt.service.Snapshot().Profile)
		},
	}

	var values struct {
		fullName, avatarURL, bio, region, village, address, farm string
	}
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags you pass are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			patch := domain.ProfilePatch{
				FullName:  changed(flags, "name", values.fullName),
				AvatarURL: changed(flags, "avatar-url", values.avatarURL),
				Bio:       changed(flags, "bio", values.bio),
				RegionID:  changed(flags, "region", values.region),
				VillageID: changed(flags, "village", values.village),
				Address:   changed(flags, "address", values.address),
				FarmName:  changed(flags, "farm", values.farm),
			}
			if patch.IsEmpty() {
				return apperrors.ValidationError("Pass at least one field to change.")
			}

			ctx := cmd.Context()
			if err := rt.restore(ctx); err != nil {
				return err
			}
			if err := rt.service.UpdateProfile(ctx, patch); err != nil {
				return err
			}
			return rt.printProfile(rt.service.Snapshot().Profile)
		},
	}
	f := update.Flags()
	f.StringVar(&values.fullName, "name", "", "full name")
	f.StringVar(&values.avatarURL, "avatar-url", "", "avatar image URL")
	f.StringVar(&values.bio, "bio", "", "short description")
	f.StringVar(&values.region, "region", "", "region ID")
	f.StringVar(&values.village, "village", "", "village ID")
	f.StringVar(&values.address, "address", "", "postal address")
	f.StringVar(&values.farm, "farm", "", "farm name")

	cmd.AddCommand(get, update)
	return cmd
}

// changed returns a pointer to value only when the flag was given, so an
// explicit empty string still clears the field.
func changed(flags *pflag.FlagSet, name, value string) *string {
	if !flags.Changed(name) {
		return nil
	}
	return &value
}

func contactCmd(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "contact <phone-or-email>",
		Short: "Change the phone number or email on your account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := rt.restore(ctx); err != nil {
				return err
			}
			if err := rt.service.UpdateContact(ctx, args[0]); err != nil {
				return err
			}
			return rt.printMessage("Contact updated.")
		},
	}
}

package main

import (
	"time"

	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/diagnostics"
	"github.com/spf13/cobra"
)

func newDSTTransitionsCmd(global *globalOptions) *cobra.Command {
	var (
		organizerID  string
		eventTypeID  string
		year         int
		includePast  bool
		inviteeZones []string
	)
	cmd := &cobra.Command{
		Use:   "dst-transitions",
		Short: "Compute slots around the organizer's DST transitions",
		Long: `Finds every UTC offset change of the organizer's timezone in the given year and
computes availability for the day before, the day of and the day after each one.
A cross-timezone check then projects the first transition day into several
invitee zones.`,
		Example: `  slotctl dst-transitions --rules-file rules.yaml --organizer org-ny --event-type intro-30 --year 2024`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := global.openStores(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			svc := availability.NewService(
				availability.NewEngine(st.rules, availability.DefaultConfig()),
				availability.NewMonitor(availability.MonitorConfig{Logger: global.logger()}),
			)
			report, err := diagnostics.NewDSTRunner(svc, st.rules, st.eventTypes).Run(ctx, diagnostics.DSTConfig{
				OrganizerID:  organizerID,
				EventTypeID:  eventTypeID,
				Year:         year,
				IncludePast:  includePast,
				Today:        availability.DateOf(time.Now()),
				InviteeZones: inviteeZones,
			})
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&organizerID, "organizer", "", "organizer id")
	cmd.Flags().StringVar(&eventTypeID, "event-type", "", "event type id")
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year to check")
	cmd.Flags().BoolVar(&includePast, "include-past", false, "also check days before today")
	cmd.Flags().StringSliceVar(&inviteeZones, "invitee-zones", diagnostics.DefaultInviteeZones, "zones for the cross-timezone check")
	_ = cmd.MarkFlagRequired("organizer")
	_ = cmd.MarkFlagRequired("event-type")
	return cmd
}

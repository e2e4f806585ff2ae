package availability

import "time"

// Projector attaches organizer and invitee wall-clock times and DST metadata to UTC slots. Each
// zone is applied with its own rules at each instant; no fixed offset delta is ever used.
type Projector struct {
	organizer *time.Location
	invitee   *time.Location
}

func NewProjector(organizerTZ, inviteeTZ string) (*Projector, error) {
	org, err := LoadZone("organizer_timezone", organizerTZ)
	if err != nil {
		return nil, err
	}
	if inviteeTZ == organizerTZ {
		return &Projector{organizer: org, invitee: org}, nil
	}
	inv, err := LoadZone("invitee_timezone", inviteeTZ)
	if err != nil {
		return nil, err
	}
	return &Projector{organizer: org, invitee: inv}, nil
}

// Project converts one slot using zones loaded by name.
func Project(slot Interval, organizerTZ, inviteeTZ string) (TimeSlot, error) {
	p, err := NewProjector(organizerTZ, inviteeTZ)
	if err != nil {
		return TimeSlot{}, err
	}
	return p.Project(slot), nil
}

func (p *Projector) Project(slot Interval) TimeSlot {
	start := slot.Start.UTC()
	end := slot.End.UTC()

	orgStart := start.In(p.organizer)
	orgEnd := end.In(p.organizer)
	_, offStart := orgStart.Zone()
	_, offEnd := orgEnd.Zone()

	return TimeSlot{
		StartUTC:            start,
		EndUTC:              end,
		OrganizerLocalStart: orgStart,
		OrganizerLocalEnd:   orgEnd,
		InviteeLocalStart:   start.In(p.invitee),
		InviteeLocalEnd:     end.In(p.invitee),
		DST: DstInfo{
			OrganizerIsDST:  orgStart.IsDST(),
			DSTTransition:   offStart != offEnd,
			UTCOffsetBefore: time.Duration(offStart) * time.Second,
			UTCOffsetAfter:  time.Duration(offEnd) * time.Second,
		},
	}
}

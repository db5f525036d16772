package standby

import (
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/standby-scheduling/internal/account"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
)

const MessageSubject = "Slot Available for You"

type Message struct {
	Subject string
	Body    string
}

// BuildMessage renders the notification sent to a matched patient.
func BuildMessage(patient account.Patient, slot scheduling.Slot, link string, validFor time.Duration) Message {
	name := strings.TrimSpace(patient.Name)
	if name == "" {
		name = "there"
	}

	what := "slot"
	if slot.Specialization != nil && strings.TrimSpace(*slot.Specialization) != "" {
		what = strings.TrimSpace(*slot.Specialization) + " slot"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "A %s opened on %s from %s to %s.\n\n",
		what, slot.Date.Format("Monday, 2 January 2006"), slot.StartTime, slot.EndTime)
	fmt.Fprintf(&b, "Click here to confirm (expires in %s):\n%s\n\n", humanDuration(validFor), link)
	b.WriteString("If someone else books it first, the link will tell you it is gone.\n")

	return Message{Subject: MessageSubject, Body: b.String()}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

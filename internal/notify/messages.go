package notify

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const timeLayout = "Mon 2 Jan 2006, 15:04"

// ConsultationBooked formats the admin message for a new consultation
func ConsultationBooked(parentName, studentName string, subjects []string, at time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"📅 <b>New consultation</b>\n%s for %s\n%s\n%s",
		html.EscapeString(parentName),
		html.EscapeString(studentName),
		html.EscapeString(strings.Join(subjects, ", ")),
		at.In(loc).Format(timeLayout),
	)
}

// ConsultationCancelled formats the admin message for a cancellation
func ConsultationCancelled(at time.Time, loc *time.Location) string {
	return fmt.Sprintf("❌ <b>Consultation cancelled</b>\n%s", at.In(loc).Format(timeLayout))
}

// ConsultationRescheduled formats the admin message for a moved consultation
func ConsultationRescheduled(from, to time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"🔁 <b>Consultation rescheduled</b>\n%s → %s",
		from.In(loc).Format(timeLayout),
		to.In(loc).Format(timeLayout),
	)
}

// EnrolmentSubmitted formats the admin message for a completed enrolment
func EnrolmentSubmitted(parentName string, students int, weeklyHours int) string {
	return fmt.Sprintf(
		"🎓 <b>Enrolment submitted</b>\n%s, %d student(s), %d h/week",
		html.EscapeString(parentName),
		students,
		weeklyHours,
	)
}

// Package timezone pins every clock read and every stay boundary to the application
// timezone configured by APP_TIMEZONE (an IANA name, UTC when unset or unknown).
//
// Check-in and check-out values arrive either as RFC3339 instants, which keep their own
// offset, or as plain YYYY-MM-DD dates, which ParseInstant reads as midnight in the
// application timezone:
//
//	checkIn, err := timezone.ParseInstant("2024-01-10")
//	created := timezone.Format(booking.CreatedAt, constant.DateFormat)
package timezone

// Package calendar adapts Google Calendar events to host appointment items
// and provides the new-appointment surface.
//
// Client.Appointment loads an event as a host.AppointmentItem. The Client
// itself is a host.AppointmentForm: opening the form inserts the event into
// the configured calendar, since there is no window to pre-fill.
package calendar

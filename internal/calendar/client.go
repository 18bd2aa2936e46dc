package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/logging"
)

// DefaultCalendarID is the authorized user's primary calendar.
const DefaultCalendarID = "primary"

// Client wraps the Google Calendar service
type Client struct {
	svc        *calendar.Service
	calendarID string
	logger     *slog.Logger
}

var _ host.AppointmentForm = (*Client)(nil)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger     *slog.Logger
	endpoint   string
	calendarID string
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithEndpoint overrides the API base URL, mainly for tests.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) {
		o.endpoint = endpoint
	}
}

// WithCalendarID sets the calendar new appointments go to.
func WithCalendarID(id string) Option {
	return func(o *clientOptions) {
		o.calendarID = id
	}
}

// NewClient creates a Client that authenticates through hc, usually the
// client returned by google.HTTPClient.
func NewClient(ctx context.Context, hc *http.Client, opts ...Option) (*Client, error) {
	o := clientOptions{logger: slog.Default(), calendarID: DefaultCalendarID}
	for _, opt := range opts {
		opt(&o)
	}
	if o.calendarID == "" {
		o.calendarID = DefaultCalendarID
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:        svc,
		calendarID: o.calendarID,
		logger:     logging.WithOperation(o.logger, "calendar"),
	}, nil
}

// CalendarID returns the calendar new appointments go to.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// Appointment loads an event. An empty calendarID means the configured one.
func (c *Client) Appointment(ctx context.Context, calendarID, eventID string) (*Event, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if calendarID == "" {
		calendarID = c.calendarID
	}

	event, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return newEvent(event), nil
}

// CreateEvent inserts appt into calendarID and returns the stored event.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, appt host.Appointment) (*Event, error) {
	if calendarID == "" {
		calendarID = c.calendarID
	}

	event := &calendar.Event{
		Summary:     appt.Subject,
		Description: appt.Body,
		Location:    appt.Location,
		Start:       &calendar.EventDateTime{DateTime: appt.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: appt.End.Format(time.RFC3339)},
	}

	// Set attendees
	for _, email := range appt.RequiredAttendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	c.logger.Debug("event created", slog.String("id", created.Id), slog.String("calendar", calendarID))
	return newEvent(created), nil
}

// DisplayNewAppointmentForm inserts appt into the configured calendar.
func (c *Client) DisplayNewAppointmentForm(ctx context.Context, appt host.Appointment) error {
	_, err := c.CreateEvent(ctx, c.calendarID, appt)
	return err
}

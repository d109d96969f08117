// Package calendar implements pipeline.Calendar on the recruiter's primary
// Google Calendar. Calls are authorized with the refresh token stored in the
// recruiter's settings; access tokens are cached in Redis until they expire.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"hirelane/pipeline-service/internal/credentials"
	"hirelane/pipeline-service/internal/pipeline"
)

const (
	primaryCalendar   = "primary"
	maxReconcileItems = 5
)

// Credentials supplies the OAuth client and refresh token of a recruiter.
type Credentials interface {
	Resolve(ctx context.Context, userID string, kind credentials.Kind) (credentials.Credentials, error)
	RefreshToken(ctx context.Context, userID string) (string, error)
}

// Google talks to the Google Calendar API.
type Google struct {
	creds   Credentials
	tokens  TokenCache
	timeout time.Duration
}

// NewGoogle returns a Google calendar. tokens may be nil to refresh on
// every call.
func NewGoogle(creds Credentials, tokens TokenCache, timeout time.Duration) *Google {
	return &Google{creds: creds, tokens: tokens, timeout: timeout}
}

var _ pipeline.Calendar = (*Google)(nil)

// ─── pipeline.Calendar ───────────────────────────────────────────────────────

func (g *Google) ListBusy(ctx context.Context, ownerID string, start, end time.Time) ([]pipeline.BusyPeriod, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	svc, err := g.service(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: primaryCalendar}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	cal, ok := resp.Calendars[primaryCalendar]
	if !ok {
		return nil, nil
	}
	out := make([]pipeline.BusyPeriod, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		s, err1 := time.Parse(time.RFC3339, p.Start)
		e, err2 := time.Parse(time.RFC3339, p.End)
		if err1 != nil || err2 != nil {
			slog.Warn("skipping unparsable busy period", "start", p.Start, "end", p.End)
			continue
		}
		out = append(out, pipeline.BusyPeriod{Start: s, End: e})
	}
	return out, nil
}

func (g *Google) CreateEvent(ctx context.Context, ownerID string, req pipeline.EventRequest) (*pipeline.CalendarEvent, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	svc, err := g.service(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ev, err := svc.Events.Insert(primaryCalendar, newEvent(req)).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return toCalendarEvent(ev), nil
}

func (g *Google) FindEvents(ctx context.Context, ownerID, query string, since time.Time) ([]pipeline.CalendarEvent, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	svc, err := g.service(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Events.List(primaryCalendar).
		Q(query).
		TimeMin(since.UTC().Format(time.RFC3339)).
		MaxResults(maxReconcileItems).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	out := make([]pipeline.CalendarEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		ev := toCalendarEvent(item)
		if ev.Start.IsZero() {
			continue
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (g *Google) CancelEvent(ctx context.Context, ownerID, eventID string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	svc, err := g.service(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(primaryCalendar, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (g *Google) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Google) service(ctx context.Context, ownerID string) (*gcal.Service, error) {
	tok, err := g.token(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return gcal.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(tok)))
}

// token returns a valid access token for ownerID, from the cache when
// possible.
func (g *Google) token(ctx context.Context, ownerID string) (*oauth2.Token, error) {
	if g.tokens != nil {
		tok, err := g.tokens.Get(ctx, ownerID)
		if err != nil {
			slog.Warn("calendar token cache read failed", "ownerId", ownerID, "err", err)
		} else if tok != nil && tok.Valid() {
			return tok, nil
		}
	}

	refresh, err := g.creds.RefreshToken(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	client, err := g.creds.Resolve(ctx, ownerID, credentials.KindGoogleOAuth)
	if err != nil {
		return nil, err
	}
	tok, err := oauthConfig(client).TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh calendar token: %w", err)
	}

	if g.tokens != nil {
		if err := g.tokens.Put(ctx, ownerID, tok); err != nil {
			slog.Warn("calendar token cache write failed", "ownerId", ownerID, "err", err)
		}
	}
	return tok, nil
}

func oauthConfig(c credentials.Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.Key,
		ClientSecret: c.Secret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarEventsScope, gcal.CalendarReadonlyScope},
	}
}

func newEvent(req pipeline.EventRequest) *gcal.Event {
	return &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: req.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		Attendees:   []*gcal.EventAttendee{{Email: req.AttendeeEmail}},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
}

// toCalendarEvent converts an API event. All-day events start at midnight
// UTC of their date.
func toCalendarEvent(ev *gcal.Event) *pipeline.CalendarEvent {
	out := &pipeline.CalendarEvent{
		ID:          ev.Id,
		EventURL:    ev.HtmlLink,
		MeetingLink: ev.HangoutLink,
	}
	if ev.Start != nil {
		switch {
		case ev.Start.DateTime != "":
			if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
				out.Start = t
			}
		case ev.Start.Date != "":
			if t, err := time.Parse(time.DateOnly, ev.Start.Date); err == nil {
				out.Start = t
			}
		}
	}
	return out
}

package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"padel-telegram-notifier/internal/domain/model"
	"padel-telegram-notifier/internal/domain/ports/adapter"
)

// Translator resolves localized strings.
type Translator interface {
	T(key string, args ...interface{}) string
}

// RefreshCallbackPrefix prefixes the callback data of the refresh button.
const RefreshCallbackPrefix = "refresh:"

// BookingRenderer turns a booking snapshot into message content. It does no
// I/O and its output depends only on its inputs.
type BookingRenderer struct {
	tr         Translator
	loc        *time.Location
	bookingURL string
}

func NewBookingRenderer(tr Translator, loc *time.Location, bookingURL string) *BookingRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingRenderer{tr: tr, loc: loc, bookingURL: strings.TrimRight(bookingURL, "/")}
}

func (r *BookingRenderer) Render(s *model.BookingSnapshot) adapter.MessageContent {
	b := s.Booking
	regs := s.OrderedRegistrations()

	var sb strings.Builder
	title := strings.TrimSpace(b.Title)
	if title == "" {
		title = r.tr.T("booking_title_default")
	}
	sb.WriteString(title)
	sb.WriteByte('\n')
	if b.LocationName != "" {
		sb.WriteString(r.tr.T("booking_location", b.LocationName))
		sb.WriteByte('\n')
	}
	sb.WriteString(r.tr.T("booking_when", r.timeRange(b.StartsAt, b.EndsAt)))
	sb.WriteByte('\n')

	confirmed := len(regs)
	if b.Capacity > 0 && confirmed > b.Capacity {
		confirmed = b.Capacity
	}
	sb.WriteString(r.tr.T("booking_players", confirmed, b.Capacity))
	sb.WriteString("\n\n")

	if len(regs) == 0 {
		sb.WriteString(r.tr.T("booking_no_players"))
	}
	for i, reg := range regs {
		if i == confirmed {
			sb.WriteByte('\n')
			sb.WriteString(r.tr.T("booking_waitlist"))
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, displayName(reg))
	}

	return adapter.MessageContent{
		Text:    strings.TrimRight(sb.String(), "\n"),
		Buttons: r.buttons(b.ID),
	}
}

func (r *BookingRenderer) buttons(bookingID string) [][]adapter.InlineButton {
	row := make([]adapter.InlineButton, 0, 2)
	if r.bookingURL != "" {
		row = append(row, adapter.InlineButton{Text: r.tr.T("booking_join"), URL: r.bookingURL + "/bookings/" + bookingID})
	}
	row = append(row, adapter.InlineButton{Text: r.tr.T("booking_refresh"), Data: RefreshCallbackPrefix + bookingID})
	return [][]adapter.InlineButton{row}
}

// timeRange formats a booking window as "Mon 02 Jan 2006 18:00–19:30".
func (r *BookingRenderer) timeRange(start, end time.Time) string {
	st := start.In(r.loc)
	if end.IsZero() {
		return st.Format("Mon 02 Jan 2006 15:04")
	}
	et := end.In(r.loc)
	if st.YearDay() != et.YearDay() || st.Year() != et.Year() {
		return st.Format("Mon 02 Jan 2006 15:04") + " – " + et.Format("Mon 02 Jan 2006 15:04")
	}
	return st.Format("Mon 02 Jan 2006 15:04") + "–" + et.Format("15:04")
}

func displayName(reg model.Registration) string {
	if n := strings.TrimSpace(reg.DisplayName); n != "" {
		return n
	}
	return reg.UserID
}

// HashContent fingerprints rendered content. Fields are length-prefixed so
// distinct contents cannot collide by concatenation.
func HashContent(c adapter.MessageContent) string {
	h := sha256.New()
	writeField := func(s string) {
		fmt.Fprintf(h, "%d:%s;", len(s), s)
	}
	writeField(c.Text)
	fmt.Fprintf(h, "rows=%d;", len(c.Buttons))
	for _, row := range c.Buttons {
		fmt.Fprintf(h, "row=%d;", len(row))
		for _, btn := range row {
			writeField(btn.Text)
			writeField(btn.Data)
			writeField(btn.URL)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

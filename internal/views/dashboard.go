package views

import (
	"context"

	"lifeline/internal/core"
	"lifeline/pkg/domain"
)

// FallbackGlyph is shown for icon names without a known glyph.
const FallbackGlyph = "•"

var glyphs = map[string]string{
	domain.IconShield:   "🛡",
	domain.IconFlame:    "🔥",
	domain.IconMedkit:   "⛑",
	domain.IconPeople:   "👪",
	domain.IconMedical:  "⚕",
	domain.IconHome:     "🏠",
	domain.IconCall:     "📞",
	domain.IconHeart:    "❤",
	domain.IconWarning:  "⚠",
	domain.IconCar:      "🚗",
	domain.IconBoat:     "⛵",
	domain.IconAirplane: "✈",
	domain.IconPerson:   "👤",
}

// Glyph returns the display glyph for an icon name.
func Glyph(icon string) string {
	if g, ok := glyphs[icon]; ok {
		return g
	}
	return FallbackGlyph
}

// Tile is one button on the dashboard.
type Tile struct {
	ID          string
	Name        string
	PhoneNumber string
	Icon        string
	Glyph       string
	// Dialable is false when the contact has no number; tapping it does nothing.
	Dialable bool
}

// Dashboard renders the list as tiles and dials on tap.
type Dashboard struct {
	source ContactSource
	dialer Dialer
	logger core.Logger
}

// NewDashboard builds a dashboard. logger may be nil.
func NewDashboard(source ContactSource, dialer Dialer, logger core.Logger) *Dashboard {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Dashboard{source: source, dialer: dialer, logger: logger}
}

// Tiles returns one tile per contact in list order.
func (d *Dashboard) Tiles() []Tile {
	return tilesFor(d.source.Contacts())
}

func tilesFor(contacts []domain.Contact) []Tile {
	tiles := make([]Tile, 0, len(contacts))
	for _, c := range contacts {
		tiles = append(tiles, Tile{
			ID:          c.ID,
			Name:        c.Name,
			PhoneNumber: c.PhoneNumber,
			Icon:        c.IconName,
			Glyph:       Glyph(c.IconName),
			Dialable:    c.Dialable(),
		})
	}
	return tiles
}

// Watch calls fn with fresh tiles after every list change until cancel is called.
func (d *Dashboard) Watch(fn func([]Tile)) (cancel func()) {
	return d.source.Subscribe(func(evt core.Event) {
		fn(tilesFor(evt.Contacts))
	})
}

// Tap dials the contact with id and reports whether a dial was attempted.
// Unknown ids and contacts without a number are ignored. Dial failures are
// logged and not returned.
func (d *Dashboard) Tap(ctx context.Context, id string) bool {
	c, ok := d.source.Contact(id)
	if !ok || !c.Dialable() {
		return false
	}
	if err := d.dialer.Dial(ctx, c.PhoneNumber); err != nil {
		d.logger.Error("failed to call number", "contact_id", c.ID, "phoneNumber", c.PhoneNumber, "error", err)
	}
	return true
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

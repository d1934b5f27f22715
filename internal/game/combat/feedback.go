package combat

import (
	"strconv"
	"time"

	"github.com/cory-johannsen/dungeon/internal/game/geom"
)

// Color is an RGBA colour with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// Palette used by floating text.
var (
	White  = Color{R: 1, G: 1, B: 1, A: 1}
	Red    = Color{R: 1, G: 0, B: 0, A: 1}
	Yellow = Color{R: 1, G: 0.92, B: 0.016, A: 1}
	Green  = Color{R: 0, G: 1, B: 0, A: 1}
	Gold   = Color{R: 1, G: 0.84, B: 0, A: 1}
)

// FloatingText is a short-lived text label shown above the world.
type FloatingText struct {
	Text     string
	Size     int
	Color    Color
	Position geom.Vec2
	Drift    geom.Vec2
	Duration time.Duration
}

// FeedbackSink receives presentation events. Implementations must not block.
type FeedbackSink interface {
	ShowFloatingText(FloatingText)
}

// FeedbackFunc adapts a plain function to FeedbackSink.
type FeedbackFunc func(FloatingText)

// ShowFloatingText calls fn(t).
func (fn FeedbackFunc) ShowFloatingText(t FloatingText) { fn(t) }

// DamageColor returns the floating text colour for dmg landing on a fighter of kind k.
func DamageColor(k Kind, dmg Damage) Color {
	if dmg.CustomColor != nil {
		return *dmg.CustomColor
	}
	if k == KindPlayer {
		if dmg.IsCritical {
			return White
		}
		return Red
	}
	if dmg.IsCritical {
		return Yellow
	}
	return White
}

// DamageFontSize scales the font between MinDamageFontSize and MaxDamageFontSize.
//
// Postcondition: MinDamageFontSize <= result <= MaxDamageFontSize.
func DamageFontSize(dmg Damage) int {
	size := MinDamageFontSize + int(DamagePercentage(dmg)*float64(MaxDamageFontSize-MinDamageFontSize))
	if dmg.IsCritical {
		size += CritFontSizeBonus
	}
	if size > MaxDamageFontSize {
		size = MaxDamageFontSize
	}
	return size
}

func (f *Fighter) showDamage(dmg Damage) {
	if f.Feedback == nil {
		return
	}
	f.Feedback.ShowFloatingText(FloatingText{
		Text:     strconv.Itoa(dmg.Amount),
		Size:     DamageFontSize(dmg),
		Color:    DamageColor(f.Kind, dmg),
		Position: f.textPosition(),
		Drift:    geom.V(0, FloatingTextRise),
		Duration: FloatingTextTime,
	})
}

// textPosition picks a random point inside the world hit box.
func (f *Fighter) textPosition() geom.Vec2 {
	box := f.Bounds()
	if f.Jitter == nil || box.Empty() {
		return f.Position
	}
	const steps = 1000
	size := box.Size()
	x := box.Min.X + size.X*float64(f.Jitter.Intn(steps+1))/steps
	y := box.Min.Y + size.Y*float64(f.Jitter.Intn(steps+1))/steps
	return geom.V(x, y)
}

// Announce shows a non-damage label above the fighter, such as "Level Up!".
func (f *Fighter) Announce(text string, size int, c Color) {
	if f.Feedback == nil {
		return
	}
	f.Feedback.ShowFloatingText(FloatingText{
		Text:     text,
		Size:     size,
		Color:    c,
		Position: f.Position,
		Drift:    geom.V(0, FloatingTextRise),
		Duration: 2 * FloatingTextTime,
	})
}

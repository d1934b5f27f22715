package gameserver

import (
	"fmt"
	"strconv"
	"time"
)

// Summary titles.
const (
	WonTitle  = "You Won!"
	LostTitle = "You Died!"
)

// SummaryItem is one labelled line of the end-of-run summary.
type SummaryItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Summary is shown once a run ends, either on the player's death or when every
// room has been cleared.
type Summary struct {
	Won   bool          `json:"won"`
	Title string        `json:"title"`
	Items []SummaryItem `json:"items"`
}

// RunStats accumulates what happened during a run.
type RunStats struct {
	Elapsed          time.Duration
	Level            int
	LevelsGained     int
	ExperienceGained int
	EnemiesDefeated  int
	BossesDefeated   int
	RoomsCleared     int
	Rooms            int
	Currency         int
	Items            int
}

// NewSummary builds the summary for a finished run.
//
// Postcondition: Title is WonTitle iff won; Items are in display order.
func NewSummary(won bool, st RunStats) *Summary {
	title := LostTitle
	if won {
		title = WonTitle
	}
	items := []SummaryItem{
		{Name: "Time", Value: st.Elapsed.Truncate(time.Second).String()},
		{Name: "Level", Value: strconv.Itoa(st.Level)},
		{Name: "Experience Gained", Value: strconv.Itoa(st.ExperienceGained)},
		{Name: "Enemies Defeated", Value: strconv.Itoa(st.EnemiesDefeated)},
		{Name: "Rooms Cleared", Value: fmt.Sprintf("%d/%d", st.RoomsCleared, st.Rooms)},
		{Name: "Gold", Value: strconv.Itoa(st.Currency)},
	}
	if st.LevelsGained > 0 {
		items = append(items, SummaryItem{Name: "Levels Gained", Value: strconv.Itoa(st.LevelsGained)})
	}
	if st.BossesDefeated > 0 {
		items = append(items, SummaryItem{Name: "Bosses Defeated", Value: strconv.Itoa(st.BossesDefeated)})
	}
	if st.Items > 0 {
		items = append(items, SummaryItem{Name: "Items Found", Value: strconv.Itoa(st.Items)})
	}
	return &Summary{Won: won, Title: title, Items: items}
}

// Item returns the value of the named item.
func (s *Summary) Item(name string) (string, bool) {
	for _, it := range s.Items {
		if it.Name == name {
			return it.Value, true
		}
	}
	return "", false
}

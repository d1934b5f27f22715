package gameserver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/ai"
	"github.com/cory-johannsen/dungeon/internal/game/biometric"
	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
	"github.com/cory-johannsen/dungeon/internal/game/effect"
	"github.com/cory-johannsen/dungeon/internal/game/hazard"
	"github.com/cory-johannsen/dungeon/internal/game/npc"
)

// ErrUnknownDungeon is returned when a dungeon ID has no layout file.
var ErrUnknownDungeon = errors.New("unknown dungeon")

// Effect definitions that tune toxic puddles when present.
const (
	PuddleDamageEffect = "toxic_puddle"
	PuddleSlowEffect   = "toxic_slow"
)

// PhantomTemplate is the enemy template spawned by hallucinations.
const PhantomTemplate = "phantom"

// Content is the validated content set shared by every session.
// Layouts hold per-run room state, so sessions receive a freshly parsed copy.
type Content struct {
	Templates  map[string]*npc.Template
	Effects    *effect.Registry
	Domains    []*ai.Domain
	Records    *biometric.Records
	ScriptsDir string

	layouts map[string]string // dungeon ID → layout file
	logger  *zap.Logger
}

// LoadContent reads every content directory named by cfg. Effect definitions are
// checked against immunityWindow and slow ticks are reported as warnings.
//
// Precondition: cfg.RoomsDir and cfg.EnemiesDir must be readable directories.
// Postcondition: Returns content with at least one dungeon, or the first load error.
func LoadContent(cfg config.ContentConfig, immunityWindow time.Duration, logger *zap.Logger) (*Content, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Content{
		Templates:  make(map[string]*npc.Template),
		ScriptsDir: cfg.ScriptsDir,
		layouts:    make(map[string]string),
		logger:     logger,
	}

	if err := c.loadLayouts(cfg.RoomsDir); err != nil {
		return nil, err
	}

	templates, err := npc.LoadTemplates(cfg.EnemiesDir)
	if err != nil {
		return nil, fmt.Errorf("loading enemy templates: %w", err)
	}
	for _, tmpl := range templates {
		if _, dup := c.Templates[tmpl.ID]; dup {
			return nil, fmt.Errorf("loading enemy templates: duplicate template %q", tmpl.ID)
		}
		c.Templates[tmpl.ID] = tmpl
	}

	c.Effects = effect.NewRegistry()
	if cfg.EffectsDir != "" {
		if c.Effects, err = effect.LoadDirectory(cfg.EffectsDir); err != nil {
			return nil, fmt.Errorf("loading effects: %w", err)
		}
		for _, def := range c.Effects.All() {
			effect.CheckTickRate(def, immunityWindow, logger)
		}
	}

	if cfg.AIDir != "" {
		if c.Domains, err = ai.LoadDomains(cfg.AIDir); err != nil {
			return nil, fmt.Errorf("loading ai domains: %w", err)
		}
	}

	if cfg.BiometricsFile != "" {
		if c.Records, err = biometric.LoadRecords(cfg.BiometricsFile); err != nil {
			return nil, err
		}
	}

	logger.Info("content loaded",
		zap.Int("dungeons", len(c.layouts)),
		zap.Int("templates", len(c.Templates)),
		zap.Int("effects", len(c.Effects.All())),
		zap.Int("ai_domains", len(c.Domains)),
		zap.Bool("biometrics", c.Records != nil),
	)
	return c, nil
}

func (c *Content) loadLayouts(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading dungeon dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		layout, err := dungeon.LoadLayoutFromFile(path, c.logger)
		if err != nil {
			return err
		}
		if prev, dup := c.layouts[layout.ID]; dup {
			return fmt.Errorf("dungeon %q defined in both %s and %s", layout.ID, prev, path)
		}
		c.layouts[layout.ID] = path
	}
	if len(c.layouts) == 0 {
		return fmt.Errorf("no dungeon files found in %s", dir)
	}
	return nil
}

// DungeonIDs returns the known dungeon IDs sorted.
func (c *Content) DungeonIDs() []string {
	ids := make([]string, 0, len(c.layouts))
	for id := range c.layouts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Layout parses a fresh copy of the dungeon id.
//
// Postcondition: Returns an error wrapping ErrUnknownDungeon when id is not loaded.
func (c *Content) Layout(id string) (*dungeon.Layout, error) {
	path, ok := c.layouts[id]
	if !ok {
		return nil, fmt.Errorf("dungeon %q: %w", id, ErrUnknownDungeon)
	}
	return dungeon.LoadLayoutFromFile(path, c.logger)
}

// Phantom returns the template used for hallucinated enemies: the one with ID
// PhantomTemplate, else the first phantom-kind template by ID, else nil.
func (c *Content) Phantom() *npc.Template {
	if t, ok := c.Templates[PhantomTemplate]; ok {
		return t
	}
	ids := make([]string, 0, len(c.Templates))
	for id, t := range c.Templates {
		if t.Kind == npc.KindPhantom {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return c.Templates[ids[0]]
}

// PuddleSpec returns the standard puddle tuned by the toxic puddle effect definitions.
func (c *Content) PuddleSpec() hazard.PuddleSpec {
	spec := hazard.DefaultPuddleSpec()
	if c.Effects == nil {
		return spec
	}
	if d, ok := c.Effects.Get(PuddleDamageEffect); ok && d.Kind == effect.KindDamageOverTime {
		spec.Duration = d.Duration
		spec.TickInterval = d.TickInterval
		spec.MinDamage = d.MinDamage
		spec.MaxDamage = d.MaxDamage
	}
	if d, ok := c.Effects.Get(PuddleSlowEffect); ok && d.Kind == effect.KindSlow {
		spec.SlowFactor = d.Factor
		spec.SlowDuration = d.Duration
	}
	return spec
}

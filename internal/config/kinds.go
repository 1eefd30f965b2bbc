package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dom/tft-catalog/internal/domain"
	"gopkg.in/yaml.v3"
)

// KindConfig holds everything that differs between the champion and item
// catalogs. A nil Include or Exclude disables that half of the prefix filter;
// a non-nil empty Include matches nothing.
type KindConfig struct {
	Path      string   // Upstream file name under data/{locale}/
	Include   []string // Id substrings that must be present (any)
	Exclude   []string // Id substrings that must be absent (all)
	SpriteDir string   // Local directory of converted sprites
	SpriteExt string   // Extension of converted sprites
	Output    string   // Persisted file, relative to DataDir unless absolute
}

var defaultExcluded = []string{
	"TFTTutorial_",
	"TFT14_NPC",
	"TFT_Item_Grant",
	"TFT_Item_Debug",
}

// DefaultKinds returns the stock settings. Both kinds point at the champions
// sprite directory; that is what the front-end has always been served.
func DefaultKinds() map[domain.Kind]KindConfig {
	return map[domain.Kind]KindConfig{
		domain.KindChampion: {
			Path:      "tft-champion.json",
			Include:   nil,
			Exclude:   append([]string(nil), defaultExcluded...),
			SpriteDir: "/images/sprites/champions",
			SpriteExt: ".webp",
			Output:    "champions.json",
		},
		domain.KindItem: {
			Path:      "tft-item.json",
			Include:   []string{"TFT_Item"},
			Exclude:   append([]string(nil), defaultExcluded...),
			SpriteDir: "/images/sprites/champions",
			SpriteExt: ".webp",
			Output:    "items.json",
		},
	}
}

// rawKind mirrors KindConfig with nodes and pointers so that unset keys can
// be told apart from explicit values.
type rawKind struct {
	Path      *string   `yaml:"path"`
	Include   yaml.Node `yaml:"include"`
	Exclude   yaml.Node `yaml:"exclude"`
	SpriteDir *string   `yaml:"sprite_dir"`
	SpriteExt *string   `yaml:"sprite_ext"`
	Output    *string   `yaml:"output"`
}

// LoadKinds returns DefaultKinds overlaid with the YAML file at path. An empty
// path yields the defaults; a path that names no file is an error.
func LoadKinds(path string) (map[domain.Kind]KindConfig, error) {
	kinds := DefaultKinds()
	if path == "" {
		return kinds, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw map[domain.Kind]rawKind
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only files decode to EOF.
		if errors.Is(err, io.EOF) {
			return kinds, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	for kind, layer := range raw {
		if !kind.Valid() {
			return nil, fmt.Errorf("config: unknown catalog kind %q in %s", kind, path)
		}
		kc := kinds[kind]
		if err := layer.apply(&kc); err != nil {
			return nil, fmt.Errorf("config: %s in %s: %w", kind, path, err)
		}
		kinds[kind] = kc
	}

	return kinds, nil
}

func (r rawKind) apply(kc *KindConfig) error {
	if r.Path != nil {
		kc.Path = *r.Path
	}
	if r.SpriteDir != nil {
		kc.SpriteDir = *r.SpriteDir
	}
	if r.SpriteExt != nil {
		kc.SpriteExt = *r.SpriteExt
	}
	if r.Output != nil {
		kc.Output = *r.Output
	}

	var err error
	if kc.Include, err = prefixList(r.Include, kc.Include); err != nil {
		return fmt.Errorf("include: %w", err)
	}
	if kc.Exclude, err = prefixList(r.Exclude, kc.Exclude); err != nil {
		return fmt.Errorf("exclude: %w", err)
	}
	return nil
}

// prefixList decodes an optional list. Absent keeps current, null clears it.
func prefixList(node yaml.Node, current []string) ([]string, error) {
	if node.Kind == 0 {
		return current, nil
	}
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		return nil, nil
	}
	list := []string{}
	if err := node.Decode(&list); err != nil {
		return nil, err
	}
	return list, nil
}

// Package scene holds the demo host types and scene served by the CLI.
package scene

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/signadot/objbridge/convert"
	"github.com/signadot/objbridge/identity"
)

type Vector3 struct {
	X float64 `bridge:"field=x"`
	Y float64 `bridge:"field=y"`
	Z float64 `bridge:"field=z"`
}

// Color is written as "#rrggbbaa" by ColorConverter.
type Color struct {
	R, G, B, A uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (Color, error) {
	h, ok := strings.CutPrefix(s, "#")
	if !ok || (len(h) != 6 && len(h) != 8) {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	return Color{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// ColorConverter writes Color as an inline hex string.
func ColorConverter() *convert.Scalar[Color] {
	return &convert.Scalar[Color]{
		ID: "color",
		Encode: func(c Color) (any, error) {
			return c.String(), nil
		},
		Decode: func(d json.RawMessage) (Color, error) {
			var s string
			if err := json.Unmarshal(d, &s); err != nil {
				return Color{}, err
			}
			return ParseColor(s)
		},
		Describe: func() *jsonschema.Schema {
			return &jsonschema.Schema{
				Type:    "string",
				Title:   "Color",
				Pattern: "^#[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$",
			}
		},
	}
}

type Transform struct {
	Position Vector3 `bridge:"field=position"`
	Rotation Vector3 `bridge:"field=rotation"`
	Scale    Vector3 `bridge:"field=scale"`
}

// Material is content: it is indexed by content path and GUID.
type Material struct {
	identity.Asset
	Shader string `bridge:"field=shader"`
	Tint   Color  `bridge:"field=tint"`
}

// Component is implemented by everything an Entity can carry.
type Component interface {
	ComponentName() string
}

// Health has a Current property which clamps to [0, Max].
type Health struct {
	Max     int `bridge:"field=max"`
	current int
}

func (Health) ComponentName() string { return "Health" }

func (h *Health) Current() int { return h.current }

func (h *Health) SetCurrent(v int) error {
	if v < 0 || v > h.Max {
		return fmt.Errorf("current health %d out of range [0, %d]", v, h.Max)
	}
	h.current = v
	return nil
}

type Renderer struct {
	Material *Material `bridge:"field=material"`
	Visible  bool      `bridge:"field=visible"`
	Layers   []string  `bridge:"field=layers,optional"`
}

func (*Renderer) ComponentName() string { return "Renderer" }

// Entity is a live scene object.  Nested entities are written as
// references.
type Entity struct {
	identity.Object

	Tag        string            `bridge:"field=tag,desc='gameplay tag'"`
	Layer      int               `bridge:"field=layer"`
	Transform  Transform         `bridge:"field=transform"`
	Parent     *Entity           `bridge:"field=parent"`
	Children   []*Entity         `bridge:"field=children"`
	Components []Component       `bridge:"field=components"`
	Labels     map[string]string `bridge:"field=labels"`
	Spawned    time.Time         `bridge:"field=spawned,readonly"`
	Cooldown   time.Duration     `bridge:"field=cooldown"`
	Legacy     int               `bridge:"field=legacy,deprecated"`
	OnDestroy  func()

	active bool
}

func (e *Entity) Active() bool { return e.active }

func (e *Entity) SetActive(v bool) { e.active = v }

// AddChild sets the parent of c to e.
func (e *Entity) AddChild(c *Entity) {
	c.Parent = e
	e.Children = append(e.Children, c)
}

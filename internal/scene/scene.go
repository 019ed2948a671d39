package scene

import (
	"fmt"
	"reflect"
	"time"

	"github.com/signadot/objbridge/identity"
	"github.com/signadot/objbridge/policy"
	"github.com/signadot/objbridge/reference"
	"github.com/signadot/objbridge/reflector"
	"github.com/signadot/objbridge/wire"
)

// Types are the host types with registered type ids.
var Types = []struct {
	T    reflect.Type
	Name string
}{
	{reflect.TypeFor[Entity](), "Entity"},
	{reflect.TypeFor[Transform](), "Transform"},
	{reflect.TypeFor[Vector3](), "Vector3"},
	{reflect.TypeFor[Color](), "Color"},
	{reflect.TypeFor[Material](), "Material"},
	{reflect.TypeFor[Health](), "Health"},
	{reflect.TypeFor[Renderer](), "Renderer"},
}

// PolicyOptions declares the properties of the scene types.
func PolicyOptions() []policy.Option {
	return []policy.Option{
		policy.WithProperties(reflect.TypeFor[Entity](), "Active"),
		policy.WithProperties(reflect.TypeFor[Health](), "Current"),
	}
}

// Scene is a small entity hierarchy with one material.
type Scene struct {
	Table *identity.Table
	Root  *Entity
}

// New builds the demo scene:
//
//	World
//	World/Player   (Health, Renderer using Assets/Materials/Hero.mat)
//	World/Player/Camera
//	World/Enemy    (Health)
func New() (*Scene, error) {
	s := &Scene{Table: identity.NewTable()}
	spawned := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	hero := &Material{Shader: "Standard", Tint: Color{R: 0xff, G: 0x80, B: 0x20, A: 0xff}}
	if _, err := s.Table.AddAsset(hero, "Assets/Materials/Hero.mat", "Material"); err != nil {
		return nil, err
	}

	world := &Entity{Tag: "Untagged", Spawned: spawned, Transform: unit()}
	player := &Entity{
		Tag:       "Player",
		Layer:     8,
		Spawned:   spawned,
		Transform: unit(),
		Cooldown:  1500 * time.Millisecond,
		Labels:    map[string]string{"team": "blue"},
	}
	player.Transform.Position = Vector3{X: 1, Y: 0, Z: 2}
	health := Health{Max: 100}
	if err := health.SetCurrent(80); err != nil {
		return nil, err
	}
	player.Components = []Component{health, &Renderer{Material: hero, Visible: true}}
	camera := &Entity{Tag: "MainCamera", Spawned: spawned, Transform: unit()}
	camera.Transform.Position.Y = 1.7
	enemy := &Entity{Tag: "Enemy", Layer: 9, Spawned: spawned, Transform: unit()}
	enemyHealth := Health{Max: 50}
	if err := enemyHealth.SetCurrent(50); err != nil {
		return nil, err
	}
	enemy.Components = []Component{enemyHealth}

	world.AddChild(player)
	player.AddChild(camera)
	world.AddChild(enemy)
	for _, e := range []struct {
		e *Entity
		p string
	}{
		{world, "World"},
		{player, "World/Player"},
		{camera, "World/Player/Camera"},
		{enemy, "World/Enemy"},
	} {
		if _, err := s.Table.Add(e.e, e.p); err != nil {
			return nil, err
		}
		e.e.SetActive(true)
	}
	s.Root = world
	return s, nil
}

func unit() Transform {
	return Transform{Scale: Vector3{X: 1, Y: 1, Z: 1}}
}

// Options returns the reflector options serving s.  extra policy options
// are appended to the scene's own.
func (s *Scene) Options(extra ...policy.Option) ([]reflector.Option, error) {
	p, err := policy.New(append(PolicyOptions(), extra...)...)
	if err != nil {
		return nil, err
	}
	opts := []reflector.Option{
		reflector.WithConverters(ColorConverter()),
		reflector.WithPolicy(p),
		reflector.WithIdentityProvider(s.Table),
	}
	for _, t := range Types {
		opts = append(opts, reflector.WithTypes(t.T, t.Name))
	}
	return opts, nil
}

// Find resolves the textual reference ref (see reference.Parse).
func (s *Scene) Find(r *reflector.Reflector, ref string) (any, wire.Reference, error) {
	wr, err := reference.Parse(ref)
	if err != nil {
		return nil, wr, err
	}
	obj, _, err := r.Resolver().FromReference(wr, nil)
	if err != nil {
		return nil, wr, fmt.Errorf("%s: %w", ref, err)
	}
	return obj, wr, nil
}

package main

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/gogpu/csg"
	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/shapes"
)

// defaultScript is rendered when no script is given: a rounded cube with
// three bores, and a tilted torus with a notch cut out of it.
const defaultScript = `
; csgdemo scene
(camera :eye (vec3 3 2.4 4.2) :at (vec3 0.4 0 0) :fov 40)
(settings :algorithm :automatic)

(product :color (vec3 0.85 0.55 0.25)
  (box :size (vec3 1.5 1.5 1.5))
  (sphere :radius 1 :segments 48)
  (cylinder :radius 0.45 :height 2 :op :subtract)
  (cylinder :radius 0.45 :height 2 :rotate (vec3 90 0 0) :op :subtract)
  (cylinder :radius 0.45 :height 2 :rotate (vec3 0 0 90) :op :subtract))

(product :color (vec3 0.3 0.6 0.9)
  (torus :major 0.7 :minor 0.22 :at (vec3 1.9 -0.4 -0.6) :rotate (vec3 30 0 0))
  (box :size (vec3 0.6 0.8 0.8) :at (vec3 2.6 -0.4 -0.6) :op :subtract))
`

// camera is a perspective camera looking from eye at a target point.
type camera struct {
	eye, at, up [3]float64
	fov         float64 // vertical, degrees
}

func defaultCamera() camera {
	return camera{eye: [3]float64{0, 0, 4}, up: [3]float64{0, 1, 0}, fov: 45}
}

// viewProj returns the view-projection matrix for the given aspect ratio.
func (c camera) viewProj(aspect float64) gpucore.Mat4 {
	view := gpucore.LookAt(c.eye[0], c.eye[1], c.eye[2], c.at[0], c.at[1], c.at[2], c.up[0], c.up[1], c.up[2])
	proj := gpucore.Perspective(c.fov*math.Pi/180, aspect, 0.1, 100)
	return proj.Mul(view)
}

// product is one CSG product rendered in a single color.
type product struct {
	color  [3]float64
	shapes []*shapes.Shape
}

// scene is the result of evaluating a script.
type scene struct {
	camera   camera
	settings csg.Settings
	products []product
}

// Custom Sexp types carrying Go values between builtins.

type sexpVec3 struct {
	v [3]float64
}

func (v *sexpVec3) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.v[0], v.v[1], v.v[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpShape struct {
	kind  string
	shape *shapes.Shape
}

func (s *sexpShape) SexpString(*zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", s.kind, s.shape.Operation())
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// kwPrefix marks keywords rewritten by preprocess.
const kwPrefix = "__kw_"

// preprocess rewrites ; comments to // comments and :keyword tokens to
// "__kw_keyword" strings, leaving string literals alone.
func preprocess(source string) string {
	var b strings.Builder
	b.Grow(len(source) + len(source)/4)
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case c == '"':
			j := i + 1
			for j < len(source) && source[j] != '"' {
				if source[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j, len(source)-1)
			b.WriteString(source[i : j+1])
			i = j
		case c == ';':
			b.WriteString("//")
			for i+1 < len(source) && source[i+1] == ';' {
				i++
			}
		case c == ':' && i+1 < len(source) && isLetter(source[i+1]):
			j := i + 1
			for j < len(source) && isKeywordChar(source[j]) {
				j++
			}
			b.WriteString(`"` + kwPrefix + source[i+1:j] + `"`)
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKeywordChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func keyword(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// args separates keyword arguments from positional ones.
type args struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(in []zygo.Sexp) (args, error) {
	a := args{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(in); i++ {
		name, ok := keyword(in[i])
		if !ok {
			a.positional = append(a.positional, in[i])
			continue
		}
		if i+1 >= len(in) {
			return a, fmt.Errorf("keyword :%s has no value", name)
		}
		a.kw[name] = in[i+1]
		i++
	}
	return a, nil
}

func toFloat(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", s.SexpString(nil))
}

func toName(s zygo.Sexp) (string, error) {
	if name, ok := keyword(s); ok {
		return name, nil
	}
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected keyword or string, got %s", s.SexpString(nil))
}

func toVec3(s zygo.Sexp) ([3]float64, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.v, nil
	}
	return [3]float64{}, fmt.Errorf("expected vec3, got %s", s.SexpString(nil))
}

// float reads keyword name as a number, falling back to def.
func (a args) float(name string, def float64) (float64, error) {
	s, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	v, err := toFloat(s)
	if err != nil {
		return 0, fmt.Errorf(":%s: %w", name, err)
	}
	return v, nil
}

func (a args) vec3(name string, def [3]float64) ([3]float64, error) {
	s, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	v, err := toVec3(s)
	if err != nil {
		return v, fmt.Errorf(":%s: %w", name, err)
	}
	return v, nil
}

func (a args) name(name, def string) (string, error) {
	s, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	v, err := toName(s)
	if err != nil {
		return "", fmt.Errorf(":%s: %w", name, err)
	}
	return v, nil
}

// shapeOptions reads the keywords every shape accepts: :op, :at,
// :rotate (degrees about X, then Y, then Z) and :segments.
func shapeOptions(a args) (gpucore.Operation, []shapes.Option, error) {
	opName, err := a.name("op", "intersect")
	if err != nil {
		return 0, nil, err
	}
	var op gpucore.Operation
	switch opName {
	case "intersect", "intersection":
		op = gpucore.Intersection
	case "subtract", "subtraction":
		op = gpucore.Subtraction
	default:
		return 0, nil, fmt.Errorf(":op: unknown operation %q", opName)
	}
	at, err := a.vec3("at", [3]float64{})
	if err != nil {
		return 0, nil, err
	}
	rot, err := a.vec3("rotate", [3]float64{})
	if err != nil {
		return 0, nil, err
	}
	segments, err := a.float("segments", 32)
	if err != nil {
		return 0, nil, err
	}
	const deg = math.Pi / 180
	model := gpucore.Translate(at[0], at[1], at[2]).
		Mul(gpucore.RotateZ(rot[2] * deg)).
		Mul(gpucore.RotateY(rot[1] * deg)).
		Mul(gpucore.RotateX(rot[0] * deg))
	return op, []shapes.Option{shapes.WithModel(model), shapes.WithSegments(int(segments))}, nil
}

type builtin func(a args) (zygo.Sexp, error)

// wrap adapts a builtin to the zygomys calling convention and prefixes
// errors with the builtin name.
func wrap(fn builtin) zygo.ZlispUserFunction {
	return func(_ *zygo.Zlisp, name string, in []zygo.Sexp) (zygo.Sexp, error) {
		a, err := parseArgs(in)
		if err == nil {
			var out zygo.Sexp
			if out, err = fn(a); err == nil {
				return out, nil
			}
		}
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
	}
}

func register(env *zygo.Zlisp, sc *scene) {
	env.AddFunction("vec3", wrap(func(a args) (zygo.Sexp, error) {
		if len(a.positional) != 3 {
			return nil, fmt.Errorf("requires exactly 3 arguments, got %d", len(a.positional))
		}
		var v sexpVec3
		for i, s := range a.positional {
			f, err := toFloat(s)
			if err != nil {
				return nil, err
			}
			v.v[i] = f
		}
		return &v, nil
	}))

	env.AddFunction("sphere", wrap(func(a args) (zygo.Sexp, error) {
		r, err := a.float("radius", 1)
		if err != nil {
			return nil, err
		}
		op, opts, err := shapeOptions(a)
		if err != nil {
			return nil, err
		}
		return &sexpShape{kind: "sphere", shape: shapes.Sphere(op, r, opts...)}, nil
	}))

	env.AddFunction("box", wrap(func(a args) (zygo.Sexp, error) {
		size, err := a.vec3("size", [3]float64{1, 1, 1})
		if err != nil {
			return nil, err
		}
		op, opts, err := shapeOptions(a)
		if err != nil {
			return nil, err
		}
		return &sexpShape{kind: "box", shape: shapes.Box(op, size[0], size[1], size[2], opts...)}, nil
	}))

	env.AddFunction("cylinder", wrap(func(a args) (zygo.Sexp, error) {
		r, err := a.float("radius", 0.5)
		if err != nil {
			return nil, err
		}
		h, err := a.float("height", 1)
		if err != nil {
			return nil, err
		}
		op, opts, err := shapeOptions(a)
		if err != nil {
			return nil, err
		}
		return &sexpShape{kind: "cylinder", shape: shapes.Cylinder(op, r, h, opts...)}, nil
	}))

	env.AddFunction("torus", wrap(func(a args) (zygo.Sexp, error) {
		major, err := a.float("major", 1)
		if err != nil {
			return nil, err
		}
		minor, err := a.float("minor", 0.25)
		if err != nil {
			return nil, err
		}
		op, opts, err := shapeOptions(a)
		if err != nil {
			return nil, err
		}
		return &sexpShape{kind: "torus", shape: shapes.Torus(op, major, minor, opts...)}, nil
	}))

	env.AddFunction("product", wrap(func(a args) (zygo.Sexp, error) {
		color, err := a.vec3("color", [3]float64{0.8, 0.8, 0.8})
		if err != nil {
			return nil, err
		}
		p := product{color: color}
		for _, s := range a.positional {
			sh, ok := s.(*sexpShape)
			if !ok {
				return nil, fmt.Errorf("expected shape, got %s", s.SexpString(nil))
			}
			p.shapes = append(p.shapes, sh.shape)
		}
		if len(p.shapes) == 0 {
			return nil, fmt.Errorf("needs at least one shape")
		}
		sc.products = append(sc.products, p)
		return zygo.SexpNull, nil
	}))

	env.AddFunction("camera", wrap(func(a args) (zygo.Sexp, error) {
		c := defaultCamera()
		var err error
		if c.eye, err = a.vec3("eye", c.eye); err != nil {
			return nil, err
		}
		if c.at, err = a.vec3("at", c.at); err != nil {
			return nil, err
		}
		if c.up, err = a.vec3("up", c.up); err != nil {
			return nil, err
		}
		if c.fov, err = a.float("fov", c.fov); err != nil {
			return nil, err
		}
		if c.fov <= 0 || c.fov >= 180 {
			return nil, fmt.Errorf(":fov: %g out of range", c.fov)
		}
		sc.camera = c
		return zygo.SexpNull, nil
	}))

	env.AddFunction("settings", wrap(func(a args) (zygo.Sexp, error) {
		s, err := parseSettings(a)
		if err != nil {
			return nil, err
		}
		sc.settings = s
		return zygo.SexpNull, nil
	}))
}

var (
	algorithms = map[string]csg.Algorithm{
		"automatic":   csg.Automatic,
		"goldfeather": csg.Goldfeather,
		"scs":         csg.SCS,
	}
	depthComplexities = map[string]csg.DepthComplexityAlgorithm{
		"none":            csg.NoDepthComplexitySampling,
		"occlusion-query": csg.OcclusionQuery,
		"sampling":        csg.DepthComplexitySampling,
	}
	optimizations = map[string]csg.Optimization{
		"default":  csg.OptimizationDefault,
		"on":       csg.OptimizationOn,
		"force-on": csg.OptimizationForceOn,
		"off":      csg.OptimizationOff,
	}
)

func lookup[T any](a args, key, def string, table map[string]T) (T, error) {
	var zero T
	name, err := a.name(key, def)
	if err != nil {
		return zero, err
	}
	v, ok := table[name]
	if !ok {
		return zero, fmt.Errorf(":%s: unknown value %q", key, name)
	}
	return v, nil
}

func parseSettings(a args) (csg.Settings, error) {
	var s csg.Settings
	var err error
	if s.Algorithm, err = lookup(a, "algorithm", "automatic", algorithms); err != nil {
		return s, err
	}
	if s.DepthComplexity, err = lookup(a, "depth-complexity", "none", depthComplexities); err != nil {
		return s, err
	}
	if s.DepthBounds, err = lookup(a, "depth-bounds", "default", optimizations); err != nil {
		return s, err
	}
	if s.CameraOutside, err = lookup(a, "camera-outside", "default", optimizations); err != nil {
		return s, err
	}
	return s, nil
}

// parseScene evaluates script in a fresh zygomys sandbox.
func parseScene(script string) (*scene, error) {
	sc := &scene{camera: defaultCamera()}
	if strings.TrimSpace(script) == "" {
		return sc, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	register(env, sc)

	if err := env.LoadString(preprocess(script)); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if _, err := env.Run(); err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}
	return sc, nil
}

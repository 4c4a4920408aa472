package keywords

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// UnknownKeywordError is returned when a keyword name does not resolve
// against the catalog.
type UnknownKeywordError struct {
	// Name is the requested keyword name.
	Name string
}

// Error implements the error interface.
func (e *UnknownKeywordError) Error() string {
	return fmt.Sprintf("unknown keyword %q", e.Name)
}

// CollisionError is returned when a registration would shadow an
// existing keyword. Registration fails fast so the collision surfaces
// at startup rather than as a silently rebound keyword mid-run.
type CollisionError struct {
	// Name is the colliding keyword name.
	Name string

	// Existing is the module that already owns the name.
	Existing string

	// Incoming is the module attempting the registration.
	Incoming string
}

// Error implements the error interface.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("keyword %q from module %q collides with registration from module %q", e.Name, e.Incoming, e.Existing)
}

// Keyword is a registered catalog entry.
type Keyword struct {
	// Name is the display name, e.g. "Get Device By Type".
	Name string

	// Module is the name of the module that registered the keyword.
	Module string

	// Doc is the keyword documentation.
	Doc string

	// Tags are free-form keyword tags.
	Tags []string

	fn reflect.Value
}

// Arguments returns the argument type names of the keyword.
func (k *Keyword) Arguments() []string {
	t := k.fn.Type()
	args := make([]string, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		args[i] = t.In(i).String()
	}
	return args
}

// Catalog holds the dynamic keyword surface assembled from registered
// modules. Lookup is insensitive to case, spaces and underscores, the
// way test engines resolve keyword names.
type Catalog struct {
	mu       sync.RWMutex
	keywords map[string]*Keyword
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{keywords: make(map[string]*Keyword)}
}

// Register adds a keyword to the catalog. name is the snake_case
// keyword name; the display name is derived from it (see DeriveName).
// fn must be a func whose last result, if any, may be an error.
// A name collision is rejected with a *CollisionError.
func (c *Catalog) Register(module, name, doc string, tags []string, fn interface{}) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("keyword %q: fn must be a func, got %T", name, fn)
	}

	display := DeriveName(name)
	key := normalizeName(display)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.keywords[key]; ok {
		return &CollisionError{Name: display, Existing: existing.Module, Incoming: module}
	}
	c.keywords[key] = &Keyword{
		Name:   display,
		Module: module,
		Doc:    doc,
		Tags:   append([]string(nil), tags...),
		fn:     v,
	}
	return nil
}

// Lookup resolves a keyword by name.
func (c *Catalog) Lookup(name string) (*Keyword, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kw, ok := c.keywords[normalizeName(name)]
	if !ok {
		return nil, &UnknownKeywordError{Name: name}
	}
	return kw, nil
}

// Run invokes a keyword with the given arguments. The keyword's return
// values are returned with a trailing error, if declared, split off.
func (c *Catalog) Run(name string, args ...interface{}) ([]interface{}, error) {
	kw, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}

	t := kw.fn.Type()
	if !t.IsVariadic() && len(args) != t.NumIn() {
		return nil, fmt.Errorf("keyword %q expects %d arguments, got %d", kw.Name, t.NumIn(), len(args))
	}
	if t.IsVariadic() && len(args) < t.NumIn()-1 {
		return nil, fmt.Errorf("keyword %q expects at least %d arguments, got %d", kw.Name, t.NumIn()-1, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if t.IsVariadic() && i >= t.NumIn()-1 {
			want = t.In(t.NumIn() - 1).Elem()
		} else {
			want = t.In(i)
		}
		v, err := coerce(arg, want)
		if err != nil {
			return nil, fmt.Errorf("keyword %q argument %d: %w", kw.Name, i, err)
		}
		in[i] = v
	}

	out := kw.fn.Call(in)

	results := make([]interface{}, 0, len(out))
	for i, v := range out {
		if i == len(out)-1 && t.Out(i) == errorType {
			if !v.IsNil() {
				return results, v.Interface().(error)
			}
			continue
		}
		results = append(results, v.Interface())
	}
	return results, nil
}

// Documentation returns the documentation string of a keyword.
func (c *Catalog) Documentation(name string) (string, error) {
	kw, err := c.Lookup(name)
	if err != nil {
		return "", err
	}
	return kw.Doc, nil
}

// ArgumentsOf returns the argument type names of a keyword.
func (c *Catalog) ArgumentsOf(name string) ([]string, error) {
	kw, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return kw.Arguments(), nil
}

// TagsOf returns the tags of a keyword.
func (c *Catalog) TagsOf(name string) ([]string, error) {
	kw, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), kw.Tags...), nil
}

// Names returns the display names of all registered keywords, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.keywords))
	for _, kw := range c.keywords {
		names = append(names, kw.Name)
	}
	sort.Strings(names)
	return names
}

// Keywords returns all registered keywords sorted by display name.
func (c *Catalog) Keywords() []*Keyword {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kws := make([]*Keyword, 0, len(c.keywords))
	for _, kw := range c.keywords {
		kws = append(kws, kw)
	}
	sort.Slice(kws, func(i, j int) bool { return kws[i].Name < kws[j].Name })
	return kws
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// DeriveName converts a snake_case keyword name into the spaced Title
// Case form test engines display. Tokens that are already all caps are
// kept as-is: "reboot_CPE" becomes "Reboot CPE".
func DeriveName(name string) string {
	parts := strings.Split(name, "_")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if p == strings.ToUpper(p) && strings.IndexFunc(p, unicode.IsLetter) >= 0 {
			out = append(out, p)
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		out = append(out, string(r))
	}
	return strings.Join(out, " ")
}

func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == ' ' || r == '_' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// coerce converts an argument to the parameter type, with string
// arguments parsed into numeric and boolean parameters the way engine
// arguments arrive as text.
func coerce(arg interface{}, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(want), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if v.Type().ConvertibleTo(want) && want.Kind() != reflect.String {
		return v.Convert(want), nil
	}
	if s, ok := arg.(string); ok {
		var parsed reflect.Value
		switch want.Kind() {
		case reflect.Int, reflect.Int64:
			var n int64
			if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
				return reflect.Value{}, fmt.Errorf("cannot parse %q as %s", s, want)
			}
			parsed = reflect.ValueOf(n).Convert(want)
		case reflect.Float64:
			var f float64
			if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
				return reflect.Value{}, fmt.Errorf("cannot parse %q as %s", s, want)
			}
			parsed = reflect.ValueOf(f)
		case reflect.Bool:
			switch strings.ToLower(s) {
			case "true", "1", "yes":
				parsed = reflect.ValueOf(true)
			case "false", "0", "no":
				parsed = reflect.ValueOf(false)
			default:
				return reflect.Value{}, fmt.Errorf("cannot parse %q as bool", s)
			}
		default:
			return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, want)
		}
		return parsed, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, want)
}

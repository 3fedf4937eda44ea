package config

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/go-viper/mapstructure/v2"
)

const (
	// KeyConfig names the external configuration file to merge in. It is a
	// directive for the task and is never handed to the bundler.
	KeyConfig = "config"
	KeyWatch  = "watch"
)

// Config is a task configuration: an open mapping from option name to value.
// Known options are described by Options, anything else is passed through.
type Config map[string]any

// Path returns the external configuration path, or "" if none is set.
func (c Config) Path() string {
	s, _ := c[KeyConfig].(string)
	return s
}

// Watch reports whether the configuration requests watch mode.
func (c Config) Watch() bool {
	return Truthy(c[KeyWatch])
}

// Without returns a shallow copy of c with the given keys removed.
func (c Config) Without(keys ...string) Config {
	out := make(Config, len(c))
	for k, v := range c {
		if !slices.Contains(keys, k) {
			out[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of c. Nested mappings and slices are copied,
// scalars are shared.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return Config(cloneMap(c))
}

// Truthy mirrors the loose truthiness task configurations have historically
// been written against: nil, false, zero numbers and "" are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// Options is the typed view of a task configuration. Every field is unset
// (nil) by default, in which case the bundler's own default applies.
type Options struct {
	Watch         bool           `json:"watch"`
	Config        *string        `json:"config"`
	Context       *string        `json:"context"`
	Entry         any            `json:"entry"` // string, list of strings, or name -> path mapping
	Output        Output         `json:"output"`
	Module        Module         `json:"module"`
	Resolve       Resolve        `json:"resolve"`
	ResolveLoader ResolveLoader  `json:"resolveLoader"`
	Externals     any            `json:"externals"` // string, list, or mapping of module names
	Target        *string        `json:"target"`
	Bail          *bool          `json:"bail"`
	Profile       *bool          `json:"profile"`
	Cache         *bool          `json:"cache"`
	Debug         *bool          `json:"debug"`
	Devtool       any            `json:"devtool"` // string, or false to disable
	DevServer     map[string]any `json:"devServer"`
	Node          any            `json:"node"`
	AMD           any            `json:"amd"`
	Loader        map[string]any `json:"loader"`

	RecordsPath       *string `json:"recordsPath"`
	RecordsInputPath  *string `json:"recordsInputPath"`
	RecordsOutputPath *string `json:"recordsOutputPath"`

	Plugins []Plugin `json:"plugins"`
}

type Output struct {
	Filename                              *string `json:"filename"`
	Path                                  *string `json:"path"`
	PublicPath                            *string `json:"publicPath"`
	ChunkFilename                         *string `json:"chunkFilename"`
	SourceMapFilename                     *string `json:"sourceMapFilename"`
	DevtoolModuleFilenameTemplate         *string `json:"devtoolModuleFilenameTemplate"`
	DevtoolFallbackModuleFilenameTemplate *string `json:"devtoolFallbackModuleFilenameTemplate"`
	DevtoolLineToLine                     any     `json:"devtoolLineToLine"`
	HotUpdateChunkFilename                *string `json:"hotUpdateChunkFilename"`
	HotUpdateMainFilename                 *string `json:"hotUpdateMainFilename"`
	JSONPFunction                         *string `json:"jsonpFunction"`
	HotUpdateFunction                     *string `json:"hotUpdateFunction"`
	Pathinfo                              *bool   `json:"pathinfo"`
	Library                               any     `json:"library"`
	LibraryTarget                         *string `json:"libraryTarget"`
	UMDNamedDefine                        *bool   `json:"umdNamedDefine"`
	SourcePrefix                          *string `json:"sourcePrefix"`
	CrossOriginLoading                    any     `json:"crossOriginLoading"`
}

type Module struct {
	Loaders     []LoaderRule `json:"loaders"`
	PreLoaders  []LoaderRule `json:"preLoaders"`
	PostLoaders []LoaderRule `json:"postLoaders"`
	NoParse     any          `json:"noParse"`
}

// LoaderRule assigns a loader to files matching Test. Test is a file suffix
// such as ".jsx" or a list of them.
type LoaderRule struct {
	Test   any    `json:"test"`
	Loader string `json:"loader"`
}

type Resolve struct {
	Alias              map[string]string `json:"alias"`
	Root               any               `json:"root"`
	ModulesDirectories []string          `json:"modulesDirectories"`
	Fallback           any               `json:"fallback"`
	Extensions         []string          `json:"extensions"`
	PackageMains       []string          `json:"packageMains"`
	PackageAlias       *string           `json:"packageAlias"`
	UnsafeCache        any               `json:"unsafeCache"`
}

type ResolveLoader struct {
	Alias              map[string]string `json:"alias"`
	Root               any               `json:"root"`
	ModulesDirectories []string          `json:"modulesDirectories"`
	Fallback           any               `json:"fallback"`
	Extensions         []string          `json:"extensions"`
	PackageMains       []string          `json:"packageMains"`
	PackageAlias       *string           `json:"packageAlias"`
	UnsafeCache        any               `json:"unsafeCache"`
	ModuleTemplates    []string          `json:"moduleTemplates"`
}

// Plugin enables one of the bundler's built-in plugins by name.
type Plugin struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options"`
}

// Defaults is the documented default task configuration. Only watch and
// config carry a value, everything else is left to the bundler.
var Defaults = Options{
	Watch:  false,
	Config: nil,
}

// Decode converts cfg into Options, starting from Defaults. Keys that do not
// correspond to a known option are returned in sorted order rather than
// treated as errors.
func Decode(cfg Config) (*Options, []string, error) {
	opts := Defaults
	md := &mapstructure.Metadata{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Metadata:         md,
		Result:           &opts,
	})
	if err != nil {
		return nil, nil, err
	}

	// watch follows the loose truthiness of Config.Watch rather than strict
	// boolean decoding.
	if err := decoder.Decode(map[string]any(cfg.Without(KeyWatch))); err != nil {
		return nil, nil, fmt.Errorf("invalid bundle options: %w", err)
	}
	opts.Watch = cfg.Watch()

	slices.Sort(md.Unused)
	return &opts, md.Unused, nil
}

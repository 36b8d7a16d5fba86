package article

import (
	"errors"
	"fmt"
	"slices"
)

// ID names one documentation article.
type ID string

const (
	AssetsInclude            ID = "assets-include"
	BasicSetup               ID = "basic-setup"
	ConditionalImports       ID = "conditional-imports"
	Configuration            ID = "configuration"
	CoreFeatures             ID = "core-features"
	CreateViteServer         ID = "create-vite-server"
	CreatingATextPlugin      ID = "creating-a-text-plugin"
	CSSAndTypeScript         ID = "css-and-typescript"
	CSSModules               ID = "css-modules"
	CSS                      ID = "css"
	DependencyPrebundling    ID = "dependency-prebundling"
	EnvironmentVariables     ID = "environment-variables"
	EnvironmentsAndModes     ID = "environments-and-modes"
	EsbuildOptions           ID = "esbuild-options"
	Frameworks               ID = "frameworks"
	GlobEntry                ID = "glob-entry"
	GlobImportSolution       ID = "glob-import-solution"
	GlobImport               ID = "glob-import"
	HotModuleReplacement     ID = "hot-module-replacement"
	ImageTools               ID = "image-tools"
	ImportMeta               ID = "import-meta"
	Introduction             ID = "introduction"
	JSONNamedExports         ID = "json-named-exports"
	LibraryModeComponents    ID = "library-mode-components"
	LibraryMode              ID = "library-mode"
	LinkAndForceOptimization ID = "link-and-force-optimization"
	Middleware               ID = "middleware"
	ModuleFederation         ID = "module-federation"
	OptimizeDeps             ID = "optimize-deps"
	PluginInlineCSS          ID = "plugin-inline-css"
	PluginMarkdown           ID = "plugin-markdown"
	PluginsVirtualModules    ID = "plugins-virtual-modules"
	Plugins                  ID = "plugins"
	PostCSS                  ID = "postcss"
	PreserveModules          ID = "preserve-modules"
	Preview                  ID = "preview"
	Proxying                 ID = "proxying"
	Sass                     ID = "sass"
	SSR                      ID = "ssr"
	StaticAssets             ID = "static-assets"
	Templates                ID = "templates"
	TypedCSSModules          ID = "typed-css-modules"
	TypeScript               ID = "typescript"
	WhyVite                  ID = "why-vite"
)

// ErrUnknown is returned for identifiers outside the registry.
var ErrUnknown = errors.New("unknown article")

// registry lists every ID in sorted order. It is the single source for
// All, Len and the membership set below.
var registry = [...]ID{
	AssetsInclude,
	BasicSetup,
	ConditionalImports,
	Configuration,
	CoreFeatures,
	CreateViteServer,
	CreatingATextPlugin,
	CSS,
	CSSAndTypeScript,
	CSSModules,
	DependencyPrebundling,
	EnvironmentVariables,
	EnvironmentsAndModes,
	EsbuildOptions,
	Frameworks,
	GlobEntry,
	GlobImport,
	GlobImportSolution,
	HotModuleReplacement,
	ImageTools,
	ImportMeta,
	Introduction,
	JSONNamedExports,
	LibraryMode,
	LibraryModeComponents,
	LinkAndForceOptimization,
	Middleware,
	ModuleFederation,
	OptimizeDeps,
	PluginInlineCSS,
	PluginMarkdown,
	Plugins,
	PluginsVirtualModules,
	PostCSS,
	PreserveModules,
	Preview,
	Proxying,
	Sass,
	SSR,
	StaticAssets,
	Templates,
	TypedCSSModules,
	TypeScript,
	WhyVite,
}

// members is built once at init and only read afterwards.
var members = func() map[ID]struct{} {
	m := make(map[ID]struct{}, len(registry))
	for _, id := range registry {
		if _, dup := m[id]; dup {
			panic(fmt.Sprintf("article: duplicate id %q in registry", id))
		}
		m[id] = struct{}{}
	}
	return m
}()

// IsValid reports whether s is a registered article identifier.
// Matching is exact: no trimming, no case folding.
func IsValid(s string) bool {
	_, ok := members[ID(s)]
	return ok
}

// Parse converts s to an ID, failing with ErrUnknown when s is not registered.
func Parse(s string) (ID, error) {
	if !IsValid(s) {
		return "", fmt.Errorf("%w: %q", ErrUnknown, s)
	}
	return ID(s), nil
}

// All returns every registered ID in sorted order. The slice is a copy.
func All() []ID {
	return slices.Clone(registry[:])
}

// Len returns the number of registered IDs.
func Len() int { return len(registry) }

func (id ID) String() string { return string(id) }

// Valid reports whether id is registered. Conversions like ID("x") compile
// fine, so values that did not come from a constant should be checked.
func (id ID) Valid() bool { return IsValid(string(id)) }

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, string(id))
	}
	return []byte(id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown values.
func (id *ID) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

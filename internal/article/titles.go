package article

// titles holds the display title for every article. Its key set must match
// the registry exactly; TestTitles_CoverRegistry enforces that.
var titles = map[ID]string{
	AssetsInclude:            "Including Assets",
	BasicSetup:               "Basic Setup",
	ConditionalImports:       "Conditional Imports",
	Configuration:            "Configuration",
	CoreFeatures:             "Core Features",
	CreateViteServer:         "Creating a Vite Server",
	CreatingATextPlugin:      "Creating a Text Plugin",
	CSS:                      "CSS",
	CSSAndTypeScript:         "CSS and TypeScript",
	CSSModules:               "CSS Modules",
	DependencyPrebundling:    "Dependency Pre-Bundling",
	EnvironmentVariables:     "Environment Variables",
	EnvironmentsAndModes:     "Environments and Modes",
	EsbuildOptions:           "esbuild Options",
	Frameworks:               "Frameworks",
	GlobEntry:                "Glob Entry Points",
	GlobImport:               "Glob Imports",
	GlobImportSolution:       "Glob Imports: Solution",
	HotModuleReplacement:     "Hot Module Replacement",
	ImageTools:               "Image Tools",
	ImportMeta:               "import.meta",
	Introduction:             "Introduction",
	JSONNamedExports:         "JSON Named Exports",
	LibraryMode:              "Library Mode",
	LibraryModeComponents:    "Library Mode: Components",
	LinkAndForceOptimization: "Linked Dependencies and Forced Optimization",
	Middleware:               "Middleware",
	ModuleFederation:         "Module Federation",
	OptimizeDeps:             "optimizeDeps",
	PluginInlineCSS:          "Plugin: Inline CSS",
	PluginMarkdown:           "Plugin: Markdown",
	Plugins:                  "Plugins",
	PluginsVirtualModules:    "Plugins: Virtual Modules",
	PostCSS:                  "PostCSS",
	PreserveModules:          "Preserving Modules",
	Preview:                  "Preview",
	Proxying:                 "Proxying",
	Sass:                     "Sass",
	SSR:                      "Server-Side Rendering",
	StaticAssets:             "Static Assets",
	Templates:                "Templates",
	TypedCSSModules:          "Typed CSS Modules",
	TypeScript:               "TypeScript",
	WhyVite:                  "Why Vite?",
}

// Title returns the display title for id, or the raw identifier when id is
// not registered.
func Title(id ID) string {
	if t, ok := titles[id]; ok {
		return t
	}
	return string(id)
}

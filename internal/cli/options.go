package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ldaudit/ldaudit/internal/cli/pagination"
	"github.com/ldaudit/ldaudit/internal/config"
	"github.com/ldaudit/ldaudit/internal/engine"
	"github.com/ldaudit/ldaudit/internal/engine/cache"
	"github.com/ldaudit/ldaudit/internal/scanner"
)

// errProjectRequired is returned when no project key is configured.
var errProjectRequired = fmt.Errorf(
	"%w: project key is required (use --project, %s or launchdarkly.project)",
	engine.ErrConfigInvalid, config.EnvProject,
)

// loadConfig builds the effective configuration: files and environment,
// then the persistent flags.
func loadConfig(cmd *cobra.Command, deps Deps, opts *rootOptions) (*config.Config, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx, config.LoadOptions{
		ConfigPath: opts.configPath,
		ProjectDir: config.ResolveProjectDir(ctx, deps.Getenv(config.EnvProjectDir), deps.WorkingDir),
		Getenv:     deps.Getenv,
	})
	if err != nil {
		if !configOptional(cmd) {
			return nil, err
		}
		cmd.PrintErrf("Warning: %v; using built-in defaults\n", err)
		cfg = config.New()
	}

	if err := applyRootFlags(cmd.Flags(), opts, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configOptional(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationConfigOptional]; ok {
			return true
		}
	}
	return false
}

// applyRootFlags copies explicitly set persistent flags onto cfg.
func applyRootFlags(fs *pflag.FlagSet, opts *rootOptions, cfg *config.Config) error {
	if fs.Changed("project") {
		cfg.LaunchDarkly.Project = strings.TrimSpace(opts.project)
	}
	if fs.Changed("env") {
		cfg.Audit.Environments = splitListValues(opts.environments)
	}
	if fs.Changed("base-url") {
		cfg.LaunchDarkly.BaseURL = strings.TrimRight(strings.TrimSpace(opts.baseURL), "/")
	}
	if fs.Changed("cache-ttl") {
		ttl, err := cache.ParseTTL(strings.TrimSpace(opts.cacheTTL))
		if err != nil {
			return fmt.Errorf("%w: --cache-ttl: %w", engine.ErrConfigInvalid, err)
		}
		cfg.Cache.TTLSeconds = ttl
	}
	if fs.Changed("output") {
		cfg.Output.DefaultFormat = strings.ToLower(strings.TrimSpace(opts.output))
	}
	if fs.Changed("color") {
		cfg.Output.Color = strings.ToLower(strings.TrimSpace(opts.color))
	}
	return nil
}

// filterFlags are the flag selection options shared by every listing.
type filterFlags struct {
	maintainers []string
	excludes    []string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.maintainers, "maintainer", nil,
		"only flags maintained by these people: first name, full name or email (comma-separated or repeated)")
	cmd.Flags().StringSliceVar(&f.excludes, "exclude", nil,
		"flag keys to leave out (comma-separated or repeated)")
}

func (f *filterFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("maintainer") {
		cfg.Audit.Maintainers = splitListValues(f.maintainers)
	}
	if cmd.Flags().Changed("exclude") {
		cfg.Audit.Excludes = splitListValues(f.excludes)
	}
}

// criteriaFlags are the inactivity options of inactive and scan.
type criteriaFlags struct {
	months           int
	includePermanent bool
	includeArchived  bool
	failOnStale      bool
}

func (f *criteriaFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.months, "months", "m", config.DefaultMonths, "inactivity threshold in months (30 days each)")
	cmd.Flags().BoolVar(&f.includePermanent, "include-permanent", false, "also audit permanent flags")
	cmd.Flags().BoolVar(&f.includeArchived, "include-archived", false, "also audit archived flags")
	cmd.Flags().BoolVar(&f.failOnStale, "fail-on-stale", false,
		fmt.Sprintf("exit with code %d when stale flags are found", ExitCodeStale))
}

func (f *criteriaFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("months") {
		cfg.Audit.Months = f.months
	}
	if cmd.Flags().Changed("include-permanent") {
		cfg.Audit.IncludePermanent = f.includePermanent
	}
	if cmd.Flags().Changed("include-archived") {
		cfg.Audit.IncludeArchived = f.includeArchived
	}
}

// scanFlags are the codebase scan options.
type scanFlags struct {
	dir         string
	extensions  []string
	maxSizeMB   int
	match       string
	workers     int
	excludeDirs []string
}

func (f *scanFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dir, "dir", "d", ".", "directory to scan")
	cmd.Flags().StringSliceVar(&f.extensions, "ext", nil,
		"file extensions to scan, e.g. js,ts (comma-separated or repeated; default all)")
	cmd.Flags().IntVar(&f.maxSizeMB, "max-file-size", config.DefaultMaxFileSizeMB,
		"skip files larger than this many MB (0 = no limit)")
	cmd.Flags().StringVar(&f.match, "match", config.DefaultMatch,
		"how a line must contain a flag key: substring, quoted or boundary")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "files scanned in parallel (0 = number of CPUs)")
	cmd.Flags().StringSliceVar(&f.excludeDirs, "exclude-dir", nil,
		"directory names to skip, replacing the built-in list (comma-separated or repeated)")
}

func (f *scanFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("dir") {
		cfg.Scan.Directory = strings.TrimSpace(f.dir)
	}
	if fs.Changed("ext") {
		cfg.Scan.Extensions = splitListValues(f.extensions)
	}
	if fs.Changed("max-file-size") {
		cfg.Scan.MaxFileSizeMB = f.maxSizeMB
	}
	if fs.Changed("match") {
		cfg.Scan.Match = strings.ToLower(strings.TrimSpace(f.match))
	}
	if fs.Changed("workers") {
		cfg.Scan.Workers = f.workers
	}
	if fs.Changed("exclude-dir") {
		cfg.Scan.ExcludeDirs = splitListValues(f.excludeDirs)
	}
}

// pagingFlags are the --limit/--offset/--page/--page-size/--sort options.
type pagingFlags struct {
	params pagination.Params
}

func (f *pagingFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.params.Limit, "limit", pagination.DefaultLimit, "show at most this many flags (0 = all)")
	cmd.Flags().IntVar(&f.params.Offset, "offset", pagination.DefaultOffset, "skip this many flags")
	cmd.Flags().IntVar(&f.params.Page, "page", 0, "page number, used with --page-size")
	cmd.Flags().IntVar(&f.params.PageSize, "page-size", 0, "flags per page, used with --page")
	cmd.Flags().StringVar(&f.params.Sort, "sort", "",
		"sort by "+strings.Join(pagination.ValidFields(), ", ")+", optionally with :asc or :desc")
}

func (f *pagingFlags) validate() error {
	if err := f.params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", engine.ErrConfigInvalid, err)
	}
	return nil
}

// validateForFetch checks everything a command needs before calling the API.
func validateForFetch(cfg *config.Config) error {
	if strings.TrimSpace(cfg.LaunchDarkly.Project) == "" {
		return errProjectRequired
	}
	return cfg.Validate()
}

// cacheModeFromCmd maps --no-cache and --override-cache to a cache mode.
func cacheModeFromCmd(cmd *cobra.Command) cache.Mode {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	override, _ := cmd.Flags().GetBool("override-cache")
	return cache.ModeFromFlags(noCache, override)
}

// fetchRequest describes the flag data a command needs.
func fetchRequest(cmd *cobra.Command, cfg *config.Config) engine.FetchRequest {
	return engine.FetchRequest{
		Project:      cfg.LaunchDarkly.Project,
		Environments: cfg.Audit.Environments,
		Mode:         cacheModeFromCmd(cmd),
	}
}

// criteriaFrom converts the audit section to analyzer criteria.
func criteriaFrom(cfg *config.Config, now time.Time) engine.Criteria {
	return engine.Criteria{
		Months:        cfg.Audit.Months,
		Environments:  cfg.Audit.Environments,
		Maintainers:   cfg.Audit.Maintainers,
		Excludes:      cfg.Audit.Excludes,
		SkipArchived:  !cfg.Audit.IncludeArchived,
		TemporaryOnly: !cfg.Audit.IncludePermanent,
		Now:           now,
	}
}

// scanConfigFrom converts the scan section to a scanner configuration.
// Relative directories resolve against workDir.
func scanConfigFrom(cfg *config.Config, workDir string) (scanner.Config, error) {
	matcher, err := scanner.MatcherByName(cfg.Scan.Match)
	if err != nil {
		return scanner.Config{}, fmt.Errorf("%w: %w", engine.ErrConfigInvalid, err)
	}

	root := cfg.Scan.Directory
	if !filepath.IsAbs(root) && workDir != "" {
		root = filepath.Join(workDir, root)
	}

	var excludeDirs []string
	if len(cfg.Scan.ExcludeDirs) > 0 {
		excludeDirs = cfg.Scan.ExcludeDirs
	}

	return scanner.Config{
		Root:        root,
		Extensions:  cfg.Scan.Extensions,
		MaxFileSize: int64(cfg.Scan.MaxFileSizeMB) * scanner.BytesPerMB,
		ExcludeDirs: excludeDirs,
		Workers:     cfg.Scan.Workers,
		Matcher:     matcher,
	}, nil
}

// openCache opens the response cache described by cfg. A store that cannot
// be opened is reported and replaced by a disabled one.
func openCache(cmd *cobra.Command, cfg *config.Config, deps Deps) *cache.FileStore {
	dir := cfg.Cache.Directory
	if dir == "" && cfg.Cache.Enabled {
		var err error
		if dir, err = cache.DefaultDirectory(); err != nil {
			logger.Warn().Ctx(cmd.Context()).Err(err).Msg("cache disabled")
			return disabledCache()
		}
	}

	store, err := cache.NewFileStore(dir, cfg.Cache.Enabled, cfg.Cache.TTLSeconds, cache.WithClock(deps.Now))
	if err != nil {
		logger.Warn().Ctx(cmd.Context()).Err(err).Str("directory", dir).Msg("cache disabled")
		return disabledCache()
	}
	return store
}

func disabledCache() *cache.FileStore {
	store, _ := cache.NewFileStore("", false, 0)
	return store
}

// newGateway wires the flag source and the response cache.
func newGateway(cmd *cobra.Command, cfg *config.Config, deps Deps) (*engine.Gateway, error) {
	source, err := deps.NewSource(cfg)
	if err != nil {
		return nil, err
	}

	opts := []engine.GatewayOption{
		engine.WithKeyParam("base_url", cfg.LaunchDarkly.BaseURL),
		engine.WithGatewayClock(deps.Now),
	}
	if store := openCache(cmd, cfg, deps); store.IsEnabled() {
		opts = append(opts, engine.WithCache(store))
	}
	return engine.NewGateway(source, opts...), nil
}

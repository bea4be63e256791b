package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bilusteknoloji/pipget/internal/cache"
	"github.com/bilusteknoloji/pipget/internal/downloader"
	"github.com/bilusteknoloji/pipget/internal/finder"
	"github.com/bilusteknoloji/pipget/internal/installed"
	"github.com/bilusteknoloji/pipget/internal/installer"
	"github.com/bilusteknoloji/pipget/internal/link"
	"github.com/bilusteknoloji/pipget/internal/pypi"
	"github.com/bilusteknoloji/pipget/internal/python"
	"github.com/bilusteknoloji/pipget/internal/resolver"
	"github.com/bilusteknoloji/pipget/internal/transport"
)

var version = "0.0.0"

var warnColor = color.New(color.FgYellow).SprintfFunc()

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:           "pipget",
		Short:         "A fast Python package installer",
		Long:          "pipget is a drop-in replacement for pip install that downloads packages concurrently.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newInstallCmd(), newListCmd())

	return rootCmd.Execute()
}

func newInstallCmd() *cobra.Command {
	installCmd := &cobra.Command{
		Use:   "install [packages...]",
		Short: "Install Python packages",
		Args:  cobra.MinimumNArgs(0),
		RunE:  runInstall,
	}

	installCmd.Flags().StringP("requirements", "r", "", "Install from requirements file")
	installCmd.Flags().IntP("jobs", "j", 0, "Max concurrent downloads (default: GOMAXPROCS)")
	installCmd.Flags().String("python", "python3", "Python binary to use")
	installCmd.Flags().String("target", "", "Target directory (default: auto-detect site-packages)")
	installCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	installCmd.Flags().Bool("dry-run", false, "Show the plan without downloading or installing")
	installCmd.Flags().Bool("no-deps", false, "Skip dependencies, install only specified packages")
	installCmd.Flags().Bool("pre", false, "Include pre-release and development versions")
	installCmd.Flags().StringSlice("allow-external", nil, "Allow external hosting for the named project (repeatable)")
	installCmd.Flags().StringSlice("allow-unverified", nil, "Allow unverified (insecure hash-less) files for the named project (repeatable)")
	installCmd.Flags().Bool("allow-all-external", false, "Allow external hosting for all requirements")
	installCmd.Flags().StringSlice("find-links", nil, "Extra URL or local directory to search for packages (repeatable)")
	installCmd.Flags().StringSlice("dependency-links", nil, "Extra URLs to search for dependency-declared packages (repeatable)")
	installCmd.Flags().Bool("process-dependency-links", false, "Enable resolution of dependency-links URLs")
	installCmd.Flags().String("index-url", "", "Base URL of a PEP 503 Simple index to crawl for candidates, instead of the PyPI JSON API")
	installCmd.Flags().StringSlice("extra-index-url", nil, "Additional Simple index URL to crawl (repeatable, requires --index-url)")

	return installCmd
}

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	listCmd.Flags().String("python", "python3", "Python binary to use")
	listCmd.Flags().String("target", "", "Target directory (default: auto-detect site-packages)")
	listCmd.Flags().Bool("outdated", false, "List only packages with a newer version on PyPI")
	listCmd.Flags().Bool("uptodate", false, "List only packages already at the latest PyPI version")
	listCmd.Flags().Bool("editable", false, "List only editable (develop-mode) installs")
	listCmd.Flags().Bool("local", false, "List only packages in the target environment (current default behavior)")

	return listCmd
}

// installFlags holds parsed CLI flags for the install command.
type installFlags struct {
	reqFile                string
	jobs                   int
	pythonBin              string
	targetDir              string
	verbose                bool
	dryRun                 bool
	noDeps                 bool
	pre                    bool
	allowExternal          []string
	allowUnverified        []string
	allowAllExternal       bool
	findLinks              []string
	dependencyLinks        []string
	processDependencyLinks bool
	indexURL               string
	extraIndexURLs         []string
}

func parseInstallFlags(cmd *cobra.Command) installFlags {
	var f installFlags

	f.reqFile, _ = cmd.Flags().GetString("requirements")
	f.jobs, _ = cmd.Flags().GetInt("jobs")
	f.pythonBin, _ = cmd.Flags().GetString("python")
	f.targetDir, _ = cmd.Flags().GetString("target")
	f.verbose, _ = cmd.Flags().GetBool("verbose")
	f.dryRun, _ = cmd.Flags().GetBool("dry-run")
	f.noDeps, _ = cmd.Flags().GetBool("no-deps")
	f.pre, _ = cmd.Flags().GetBool("pre")
	f.allowExternal, _ = cmd.Flags().GetStringSlice("allow-external")
	f.allowUnverified, _ = cmd.Flags().GetStringSlice("allow-unverified")
	f.allowAllExternal, _ = cmd.Flags().GetBool("allow-all-external")
	f.findLinks, _ = cmd.Flags().GetStringSlice("find-links")
	f.dependencyLinks, _ = cmd.Flags().GetStringSlice("dependency-links")
	f.processDependencyLinks, _ = cmd.Flags().GetBool("process-dependency-links")
	f.indexURL, _ = cmd.Flags().GetString("index-url")
	f.extraIndexURLs, _ = cmd.Flags().GetStringSlice("extra-index-url")

	return f
}

func runInstall(cmd *cobra.Command, args []string) error {
	start := time.Now()
	flags := parseInstallFlags(cmd)

	requirements, err := collectRequirements(args, flags.reqFile)
	if err != nil {
		return err
	}

	if len(requirements) == 0 {
		return fmt.Errorf("no packages specified; use 'pipget install <pkg>' or 'pipget install -r requirements.txt'")
	}

	logger := newLogger(flags.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := detectEnv(ctx, flags.pythonBin, flags.targetDir, logger)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	pypiClient := pypi.New(pypi.WithHTTPClient(httpClient), pypi.WithLogger(logger))

	resolved, err := resolveDeps(ctx, requirements, pypiClient, flags.noDeps, env, logger)
	if err != nil {
		return err
	}

	fc := buildFinderConfig(flags, env, logger)

	var plans []downloadPlan

	if len(fc.IndexURLs) > 0 {
		session := transport.New(transport.WithHTTPClient(httpClient), transport.WithLogger(logger))
		plans, err = selectWheelsLive(ctx, resolved, fc, session, env)
	} else {
		plans, err = selectWheels(ctx, resolved, pypiClient, fc, env)
	}

	if err != nil {
		return err
	}

	if flags.dryRun {
		printDryRun(plans)

		return nil
	}

	results, tmpDir, err := downloadPackages(ctx, plans, flags.jobs, httpClient, logger)
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	printDownloadResults(results)

	fmt.Println("\nInstalling...")

	inst := installer.New(env, installer.WithLogger(logger))
	if err := inst.Install(ctx, results); err != nil {
		return fmt.Errorf("installing packages: %w", err)
	}

	fmt.Printf("  ✓ %d packages installed\n", len(results))
	fmt.Printf("\nDone in %.1fs\n", time.Since(start).Seconds())

	return nil
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func detectEnv(ctx context.Context, pythonBin, targetDir string, logger *slog.Logger) (*python.Environment, error) {
	pyDetector := python.New(python.WithPythonBin(pythonBin))

	env, err := pyDetector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detecting Python environment: %w", err)
	}

	if targetDir != "" {
		absTarget, err := filepath.Abs(targetDir)
		if err != nil {
			return nil, fmt.Errorf("resolving target directory: %w", err)
		}

		env.SitePackages = absTarget
	}

	logger.Debug("detected Python environment",
		slog.String("prefix", env.Prefix),
		slog.String("site-packages", env.SitePackages),
		slog.String("platform", env.PlatformTag),
		slog.String("version", env.PythonVersion),
		slog.Bool("venv", env.IsVirtualEnv),
	)

	return env, nil
}

func resolveDeps(ctx context.Context, requirements []string, pypiClient pypi.Client, noDeps bool, env *python.Environment, logger *slog.Logger) ([]resolver.ResolvedPackage, error) {
	fmt.Println("Resolving dependencies...")

	markerEnv := buildMarkerEnv(env)

	resolverSvc := resolver.New(pypiClient,
		resolver.WithNoDeps(noDeps),
		resolver.WithMarkerEnv(markerEnv),
		resolver.WithLogger(logger),
	)

	resolved, err := resolverSvc.Resolve(ctx, requirements)
	if err != nil {
		return nil, fmt.Errorf("resolving dependencies: %w", err)
	}

	resolvedMap := make(map[string]resolver.ResolvedPackage, len(resolved))
	for _, pkg := range resolved {
		resolvedMap[pkg.Name] = pkg
	}

	rootNames := make([]string, 0, len(requirements))
	for _, r := range requirements {
		rootNames = append(rootNames, resolver.NormalizeName(resolver.ParseRequirement(r).Name))
	}

	printDependencyTree(rootNames, resolvedMap)

	return resolved, nil
}

func printDryRun(plans []downloadPlan) {
	fmt.Printf("\nWould download %d packages:\n", len(plans))

	for _, p := range plans {
		fmt.Printf("  %s (%s)\n", p.wheelURL.Filename, formatSize(p.wheelURL.Size))
	}

	fmt.Println("\nDry run, no changes made.")
}

func printDownloadResults(results []downloader.Result) {
	for _, r := range results {
		suffix := ""
		if r.Cached {
			suffix = " (cached)"
		}

		fmt.Printf("  ✓ %s (%s)%s\n", filepath.Base(r.FilePath), formatSize(r.Size), suffix)
	}
}

type downloadPlan struct {
	pkg      resolver.ResolvedPackage
	wheelURL pypi.URL
}

// buildFinderConfig turns install flags and the detected interpreter into
// the finder.Config that governs asset selection (spec §3).
func buildFinderConfig(flags installFlags, env *python.Environment, logger *slog.Logger) finder.Config {
	allowExternal := make(map[string]bool, len(flags.allowExternal))
	for _, name := range flags.allowExternal {
		allowExternal[resolver.NormalizeName(name)] = true
	}

	allowUnverified := make(map[string]bool, len(flags.allowUnverified))
	for _, name := range flags.allowUnverified {
		allowUnverified[resolver.NormalizeName(name)] = true
	}

	var indexURLs []string
	if flags.indexURL != "" {
		indexURLs = append(indexURLs, flags.indexURL)
		indexURLs = append(indexURLs, flags.extraIndexURLs...)
	}

	return finder.Config{
		FindLinks:              flags.findLinks,
		IndexURLs:              indexURLs,
		AllowExternal:          allowExternal,
		AllowUnverified:        allowUnverified,
		AllowAllExternal:       flags.allowAllExternal,
		AllowAllPrereleases:    flags.pre,
		UseWheel:               true,
		ProcessDependencyLinks: flags.processDependencyLinks,
		DependencyLinks:        flags.dependencyLinks,
		SupportedTags:          resolver.CompatTags(env.PythonVersion, resolver.WheelPlatformTag(env.PlatformTag), ""),
		RunningPythonVersion:   resolver.FormatPythonVersion(env.PythonVersion),
		Platform:               resolver.WheelPlatformTag(env.PlatformTag),
		Logger:                 logger,
	}
}

// selectWheels picks, for every resolved package, the asset spec's Link
// Filter and composite ranking (spec §4.D, §4.F step 9) would choose
// among that release's PyPI file listing, given the caller's tag/
// pre-release/external-hosting policy in fc. Because the dependency
// resolver has already pinned an exact version, the requirement built
// here carries an "==" specifier so FilterAndRank's narrowing step is a
// no-op beyond the policy gates themselves.
func selectWheels(ctx context.Context, resolved []resolver.ResolvedPackage, client pypi.Client, fc finder.Config, env *python.Environment) ([]downloadPlan, error) {
	var plans []downloadPlan

	for _, pkg := range resolved {
		pkgInfo, err := client.GetPackageVersion(ctx, pkg.Name, pkg.Version)
		if err != nil {
			return nil, fmt.Errorf("fetching URLs for %s %s: %w", pkg.Name, pkg.Version, err)
		}

		byFilename := make(map[string]pypi.URL, len(pkgInfo.URLs))

		links := make([]link.Link, 0, len(pkgInfo.URLs))

		for _, u := range pkgInfo.URLs {
			byFilename[u.Filename] = u
			links = append(links, link.NewTrustedLink(u.URL))
		}

		req := finder.Requirement{
			Name:    pkg.Name,
			URLName: pkg.Name,
			Specifiers: []finder.Specifier{
				{Op: "==", Version: pkg.Version},
			},
			// The resolver has already decided pkg.Version, pre-release or
			// not; re-applying pre-release gating here (ApplicableVersions)
			// would wrongly drop every file for an already-chosen
			// pre-release version.
			PrereleasesAllowed: true,
		}

		ranked := finder.FilterAndRank(links, req, fc)
		if len(ranked) == 0 {
			return nil, fmt.Errorf("no compatible file for %s %s (platform: %s, python: cp%s)",
				pkg.Name, pkg.Version, fc.Platform, env.PythonVersion)
		}

		chosen, ok := byFilename[ranked[0].Link.Filename()]
		if !ok {
			return nil, fmt.Errorf("internal error: chosen link %s not among %s %s's file listing",
				ranked[0].Link.Filename(), pkg.Name, pkg.Version)
		}

		plans = append(plans, downloadPlan{pkg: pkg, wheelURL: chosen})
	}

	return plans, nil
}

// selectWheelsLive is selectWheels' counterpart for the --index-url mode:
// instead of asking the PyPI JSON API for a version's file listing, it
// crawls fc.IndexURLs/fc.FindLinks directly through finder.Selector,
// exercising the full walk-pages/resolveURLName/merge-pools pipeline of
// spec §4.E/§4.F rather than just its filter/rank tail. A crawled Link
// carries no PyPI-reported size or digest, so the resulting
// downloader.Request's SHA256 is left empty — downloader.Manager already
// treats an empty SHA256 as "skip verification" for exactly this case.
func selectWheelsLive(ctx context.Context, resolved []resolver.ResolvedPackage, fc finder.Config, session transport.Session, env *python.Environment) ([]downloadPlan, error) {
	sel := finder.NewSelector(fc, session)

	var plans []downloadPlan

	for _, pkg := range resolved {
		req := finder.Requirement{
			Name:    pkg.Name,
			URLName: pkg.Name,
			Specifiers: []finder.Specifier{
				{Op: "==", Version: pkg.Version},
			},
			PrereleasesAllowed: true,
		}

		chosen, err := sel.FindRequirement(ctx, req, true)
		if err != nil {
			return nil, fmt.Errorf("crawling index for %s %s: %w", pkg.Name, pkg.Version, err)
		}

		if chosen == nil {
			return nil, fmt.Errorf("no compatible file for %s %s found on the configured index (platform: %s, python: cp%s)",
				pkg.Name, pkg.Version, fc.Platform, env.PythonVersion)
		}

		plans = append(plans, downloadPlan{
			pkg: pkg,
			wheelURL: pypi.URL{
				Filename: chosen.Filename(),
				URL:      chosen.URL(),
			},
		})
	}

	return plans, nil
}

// downloadPackages downloads all planned packages concurrently with cache support.
// Caller is responsible for cleaning up tmpDir after installation.
func downloadPackages(ctx context.Context, plans []downloadPlan, jobs int, httpClient *http.Client, logger *slog.Logger) ([]downloader.Result, string, error) {
	tmpDir, err := os.MkdirTemp("", "pipget-downloads-*")
	if err != nil {
		return nil, "", fmt.Errorf("creating temp directory: %w", err)
	}

	requests := buildDownloadRequests(plans)

	workers := runtime.GOMAXPROCS(0)
	if jobs > 0 {
		workers = jobs
	}

	fmt.Printf("\nDownloading %d packages (%d workers)...\n", len(requests), workers)

	dlManager := newDownloader(tmpDir, jobs, httpClient, logger)

	results, err := dlManager.Download(ctx, requests)
	if err != nil {
		_ = os.RemoveAll(tmpDir)

		return nil, "", fmt.Errorf("downloading packages: %w", err)
	}

	return results, tmpDir, nil
}

func buildDownloadRequests(plans []downloadPlan) []downloader.Request {
	requests := make([]downloader.Request, len(plans))
	for i, p := range plans {
		requests[i] = downloader.Request{
			Name:     p.pkg.Name,
			Version:  p.pkg.Version,
			URL:      p.wheelURL.URL,
			SHA256:   p.wheelURL.Digests.SHA256,
			Filename: p.wheelURL.Filename,
		}
	}

	return requests
}

func newDownloader(tmpDir string, jobs int, httpClient *http.Client, logger *slog.Logger) *downloader.Manager {
	wheelCache, err := cache.New(cache.WithLogger(logger))
	if err != nil {
		logger.Debug("cache unavailable, continuing without cache", slog.String("error", err.Error()))
	}

	dlOpts := []downloader.Option{
		downloader.WithHTTPClient(httpClient),
		downloader.WithLogger(logger),
	}

	if wheelCache != nil {
		dlOpts = append(dlOpts, downloader.WithCache(wheelCache))
	}

	if jobs > 0 {
		dlOpts = append(dlOpts, downloader.WithMaxWorkers(jobs))
	}

	return downloader.New(tmpDir, dlOpts...)
}

// collectRequirements merges CLI args and requirements file entries.
func collectRequirements(args []string, reqFile string) ([]string, error) {
	var requirements []string

	requirements = append(requirements, args...)

	if reqFile != "" {
		fileReqs, err := parseRequirementsFile(reqFile)
		if err != nil {
			return nil, err
		}

		requirements = append(requirements, fileReqs...)
	}

	return requirements, nil
}

// parseRequirementsFile reads a pip-compatible requirements file.
// Skips comments, empty lines, and pip options (lines starting with -).
func parseRequirementsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening requirements file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var reqs []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Strip inline comments.
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		// Skip empty lines and pip options (e.g., --index-url, -e, -c).
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}

		reqs = append(reqs, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements file %s: %w", path, err)
	}

	return reqs, nil
}

// buildMarkerEnv creates a PEP 508 marker environment from the detected Python env.
func buildMarkerEnv(env *python.Environment) resolver.MarkerEnv {
	pyVer := resolver.FormatPythonVersion(env.PythonVersion)

	var sysPlatform, osName string

	switch {
	case strings.HasPrefix(env.PlatformTag, "macosx"):
		sysPlatform = "darwin"
		osName = "posix"
	case strings.HasPrefix(env.PlatformTag, "linux"):
		sysPlatform = "linux"
		osName = "posix"
	default:
		sysPlatform = "linux"
		osName = "posix"
	}

	return resolver.MarkerEnv{
		PythonVersion: pyVer,
		SysPlatform:   sysPlatform,
		OsName:        osName,
	}
}

// printDependencyTree prints the resolved packages as a dependency tree.
func printDependencyTree(roots []string, resolved map[string]resolver.ResolvedPackage) {
	visited := make(map[string]bool)

	for _, root := range roots {
		pkg, ok := resolved[root]
		if !ok {
			continue
		}

		fmt.Printf("  %s %s\n", pkg.Name, pkg.Version)

		visited[root] = true

		printSubTree(pkg.Dependencies, resolved, "  ", visited)
	}
}

func printSubTree(deps []string, resolved map[string]resolver.ResolvedPackage, prefix string, visited map[string]bool) {
	for i, depName := range deps {
		pkg, ok := resolved[depName]
		if !ok {
			continue
		}

		isLast := i == len(deps)-1

		connector := "├── "
		childPrefix := "│   "

		if isLast {
			connector = "└── "
			childPrefix = "    "
		}

		fmt.Printf("%s%s%s %s\n", prefix, connector, pkg.Name, pkg.Version)

		if !visited[depName] && len(pkg.Dependencies) > 0 {
			visited[depName] = true
			printSubTree(pkg.Dependencies, resolved, prefix+childPrefix, visited)
		}
	}
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%d KB", bytes/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// listRow is one rendered line of `pipget list`: Package, Version,
// (when checking against the index) Latest, and Location.
type listRow struct {
	record  installed.Record
	latest  string
	current bool // record.Version >= latest, once Latest is known
}

func runList(cmd *cobra.Command, args []string) error {
	pythonBin, _ := cmd.Flags().GetString("python")
	targetDir, _ := cmd.Flags().GetString("target")
	outdated, _ := cmd.Flags().GetBool("outdated")
	uptodate, _ := cmd.Flags().GetBool("uptodate")
	editableOnly, _ := cmd.Flags().GetBool("editable")

	logger := newLogger(false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, err := detectEnv(ctx, pythonBin, targetDir, logger)
	if err != nil {
		return err
	}

	records, err := installed.Scan(env.SitePackages)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", env.SitePackages, err)
	}

	if editableOnly {
		records = filterEditable(records)
	}

	rows := make([]listRow, len(records))
	for i, r := range records {
		rows[i] = listRow{record: r}
	}

	if outdated || uptodate {
		httpClient := &http.Client{Timeout: 30 * time.Second}
		pypiClient := pypi.New(pypi.WithHTTPClient(httpClient), pypi.WithLogger(logger))

		rows = annotateLatest(ctx, rows, pypiClient, logger)
		rows = filterByFreshness(rows, outdated, uptodate)
	}

	renderListTable(rows, outdated || uptodate)

	return nil
}

func filterEditable(records []installed.Record) []installed.Record {
	var out []installed.Record

	for _, r := range records {
		if r.Editable {
			out = append(out, r)
		}
	}

	return out
}

// annotateLatest fills in each row's Latest/current fields by querying
// PyPI, skipping (and warning about) any package the index has no record
// of rather than failing the whole listing.
func annotateLatest(ctx context.Context, rows []listRow, client pypi.Client, logger *slog.Logger) []listRow {
	for i := range rows {
		info, err := client.GetPackage(ctx, rows[i].record.ProjectName)
		if err != nil {
			logger.Debug("could not check latest version",
				slog.String("package", rows[i].record.ProjectName), slog.String("error", err.Error()))

			fmt.Fprintln(os.Stderr, warnColor("warning: could not check latest version for %s: %v",
				rows[i].record.ProjectName, err))

			continue
		}

		rows[i].latest = info.Info.Version

		cmp, err := resolver.CompareVersions(rows[i].record.Version, info.Info.Version)
		rows[i].current = err == nil && cmp >= 0
	}

	return rows
}

func filterByFreshness(rows []listRow, outdated, uptodate bool) []listRow {
	var out []listRow

	for _, row := range rows {
		if row.latest == "" {
			continue
		}

		if outdated && !row.current {
			out = append(out, row)
		}

		if uptodate && row.current {
			out = append(out, row)
		}
	}

	return out
}

func renderListTable(rows []listRow, withLatest bool) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	if withLatest {
		t.AppendHeader(table.Row{"Package", "Version", "Latest", "Location"})
	} else {
		t.AppendHeader(table.Row{"Package", "Version", "Location"})
	}

	for _, row := range rows {
		name := row.record.ProjectName
		if row.record.Editable {
			name += " (editable)"
		}

		if withLatest {
			latest := row.latest
			if !row.current && latest != "" {
				latest = warnColor(latest)
			}

			t.AppendRow(table.Row{name, row.record.Version, latest, row.record.Location})
		} else {
			t.AppendRow(table.Row{name, row.record.Version, row.record.Location})
		}
	}

	t.Render()
}

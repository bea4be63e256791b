// Package installed reads the distributions already present in a Python
// environment's site-packages, the read-side mirror of
// internal/installer's RECORD/INSTALLER writer. It grounds the
// "Installed-distribution introspection" collaborator spec §6 names and
// the InstalledFinder the selector consults before ever hitting the
// network (pip/finder/installed.py), plus the richer per-distribution
// view pip's own `list` command builds (pip/commands/list.py).
package installed

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bilusteknoloji/pipget/internal/resolver"
)

// Record describes one distribution found in site-packages.
type Record struct {
	// ProjectName is the distribution's name exactly as declared in its
	// metadata (e.g. "Flask-SQLAlchemy").
	ProjectName string
	// Key is the PEP 503-normalized form of ProjectName, used for
	// case/separator-insensitive lookups (pip calls this dist.key).
	Key string
	// Version is the installed version string.
	Version string
	// Location is the dist-info (or egg-info) directory's parent,
	// i.e. the site-packages root the distribution lives under.
	Location string
	// Editable reports whether the distribution was installed in
	// editable/develop mode, detected via direct_url.json's dir_info.editable
	// (PEP 610) rather than the legacy .egg-link mechanism.
	Editable bool
}

// Scan walks sitePackages for installed distributions, returning one
// Record per *.dist-info or *.egg-info directory found. Malformed or
// unreadable metadata is skipped rather than aborting the whole scan,
// matching pip's tolerance of a partially-broken environment.
func Scan(sitePackages string) ([]Record, error) {
	entries, err := os.ReadDir(sitePackages)
	if err != nil {
		return nil, err
	}

	var records []Record

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()

		switch {
		case strings.HasSuffix(name, ".dist-info"):
			if r, ok := readDistInfo(sitePackages, name); ok {
				records = append(records, r)
			}
		case strings.HasSuffix(name, ".egg-info"):
			if r, ok := readEggInfo(sitePackages, name); ok {
				records = append(records, r)
			}
		}
	}

	return records, nil
}

// FindByName looks up a Record by name, matching case- and
// separator-insensitively via PEP 503 normalization, mirroring how pip
// resolves InstallRequirement.satisfied_by against req.name.
func FindByName(records []Record, name string) (Record, bool) {
	key := resolver.NormalizeName(name)

	for _, r := range records {
		if r.Key == key {
			return r, true
		}
	}

	return Record{}, false
}

func readDistInfo(sitePackages, dirName string) (Record, bool) {
	dir := filepath.Join(sitePackages, dirName)

	name, version, ok := parseMetadataFile(filepath.Join(dir, "METADATA"))
	if !ok {
		return Record{}, false
	}

	return Record{
		ProjectName: name,
		Key:         resolver.NormalizeName(name),
		Version:     version,
		Location:    sitePackages,
		Editable:    isEditable(dir),
	}, true
}

func readEggInfo(sitePackages, dirName string) (Record, bool) {
	dir := filepath.Join(sitePackages, dirName)

	name, version, ok := parseMetadataFile(filepath.Join(dir, "PKG-INFO"))
	if !ok {
		return Record{}, false
	}

	return Record{
		ProjectName: name,
		Key:         resolver.NormalizeName(name),
		Version:     version,
		Location:    sitePackages,
		// egg-info next to its source tree (rather than inside site-packages
		// proper) is pip's legacy signal for an editable install; a more
		// precise check would stat for an adjacent .egg-link, which this
		// scan does not attempt.
		Editable: false,
	}, true
}

// parseMetadataFile extracts Name/Version from an email-header-formatted
// METADATA or PKG-INFO file (PEP 566/345).
func parseMetadataFile(path string) (name, version string, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", false
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "Name:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
		case strings.HasPrefix(line, "Version:"):
			version = strings.TrimSpace(strings.TrimPrefix(line, "Version:"))
		}

		if name != "" && version != "" {
			break
		}
	}

	return name, version, name != "" && version != ""
}

// directURLInfo is the subset of PEP 610's direct_url.json this package
// cares about: whether the install was editable.
type directURLInfo struct {
	DirInfo struct {
		Editable bool `json:"editable"`
	} `json:"dir_info"`
}

func isEditable(distInfoDir string) bool {
	data, err := os.ReadFile(filepath.Join(distInfoDir, "direct_url.json"))
	if err != nil {
		return false
	}

	var info directURLInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return false
	}

	return info.DirInfo.Editable
}

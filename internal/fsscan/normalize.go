package fsscan

import "strings"

const (
	sitePackagesDir = "site-packages"
	eggInfoDir      = "EGG-INFO"
)

// entryPath is a file's location relative to the package root it
// belongs to, after nested roots have been stripped.
type entryPath struct {
	// Path components, filename last. Never empty.
	components []string

	// Whether the file was found below a site-packages directory.
	inSitePackages bool
}

func (e entryPath) fileName() string {
	return e.components[len(e.components)-1]
}

func (e entryPath) parents() []string {
	return e.components[:len(e.components)-1]
}

// normalize rewrites the components of a path relative to the scan
// root so they are relative to the package root the file lives in.
// site-packages directories and unpacked eggs are package roots of
// their own. The second return value is false for files that must not
// be classified at all, such as packaging metadata.
//
// Each kind of rewrite is applied at most once.
func normalize(components []string) (entryPath, bool) {
	if len(components) == 0 {
		return entryPath{}, false
	}

	first := components[0]
	if strings.HasSuffix(first, ".dist-info") || strings.HasSuffix(first, ".egg-info") {
		return entryPath{}, false
	}

	e := entryPath{components: components}

	if first == sitePackagesDir {
		e.components = components[1:]
		e.inSitePackages = true
		if len(e.components) == 0 {
			return entryPath{}, false
		}
	}

	dirs := e.parents()
	for i, dir := range dirs {
		if !strings.HasSuffix(dir, ".egg") {
			continue
		}
		e.components = e.components[i+1:]
		if e.components[0] == eggInfoDir {
			return entryPath{}, false
		}
		break
	}

	return e, true
}

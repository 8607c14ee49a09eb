package config

import (
	"github.com/crawlkit/origind/internal/errs"
)

// DirectoryEntry is one declared directory origin.
type DirectoryEntry struct {
	URL    string
	Mounts []string
}

// RepositoryEntry is one declared repository origin.
type RepositoryEntry struct {
	URL     string
	GitURLs []string
}

// Directories extracts the typed directory entries from the raw document.
func Directories(raw map[string]any) ([]DirectoryEntry, error) {
	items, err := entryList(raw, "directories")
	if err != nil {
		return nil, err
	}
	out := make([]DirectoryEntry, 0, len(items))
	for _, item := range items {
		mounts, err := stringList(item, "mounts")
		if err != nil {
			return nil, err
		}
		if len(mounts) == 0 {
			return nil, errs.New(errs.KindConfiguration, "directories entry must contain mounts")
		}
		out = append(out, DirectoryEntry{URL: stringField(item, "url"), Mounts: mounts})
	}
	return out, nil
}

// Repositories extracts the typed repository entries from the raw document.
func Repositories(raw map[string]any) ([]RepositoryEntry, error) {
	items, err := entryList(raw, "repositories")
	if err != nil {
		return nil, err
	}
	out := make([]RepositoryEntry, 0, len(items))
	for _, item := range items {
		urls, err := stringList(item, "git_urls")
		if err != nil {
			return nil, err
		}
		if len(urls) == 0 {
			return nil, errs.New(errs.KindConfiguration, "repositories entry must contain git_urls")
		}
		out = append(out, RepositoryEntry{URL: stringField(item, "url"), GitURLs: urls})
	}
	return out, nil
}

// Transform rewrites the declarative origin description into the standard
// crawler form: repository git_urls and directory mount remotes become
// seed_urls, and both entry kinds merge into the generic domains list.
// Unrelated top-level keys pass through untouched.
func Transform(raw map[string]any) (map[string]any, error) {
	var domains []any
	if existing, ok := raw["domains"].([]any); ok {
		domains = append(domains, existing...)
	}

	repositories, err := entryList(raw, "repositories")
	if err != nil {
		return nil, err
	}
	for _, repo := range repositories {
		urls, err := stringList(repo, "git_urls")
		if err != nil {
			return nil, err
		}
		if len(urls) == 0 {
			return nil, errs.New(errs.KindConfiguration, "repositories entry must contain git_urls")
		}
		rewritten := cloneEntry(repo)
		delete(rewritten, "git_urls")
		rewritten["seed_urls"] = toAnyList(urls)
		domains = append(domains, rewritten)
	}

	directories, err := entryList(raw, "directories")
	if err != nil {
		return nil, err
	}
	for _, dir := range directories {
		mounts, err := stringList(dir, "mounts")
		if err != nil {
			return nil, err
		}
		if len(mounts) == 0 {
			return nil, errs.New(errs.KindConfiguration, "directories entry must contain mounts")
		}
		seeds := make([]any, 0, len(mounts))
		for _, mount := range mounts {
			_, remote, err := MountParts(mount)
			if err != nil {
				return nil, err
			}
			seeds = append(seeds, remote)
		}
		rewritten := cloneEntry(dir)
		delete(rewritten, "mounts")
		rewritten["seed_urls"] = seeds
		domains = append(domains, rewritten)
	}

	standard := map[string]any{"domains": domains}
	for key, value := range raw {
		switch key {
		case "domains", "repositories", "directories":
		default:
			standard[key] = value
		}
	}
	return standard, nil
}

func entryList(raw map[string]any, key string) ([]map[string]any, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return nil, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, errs.New(errs.KindConfiguration, "%s must be a list", key)
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, errs.New(errs.KindConfiguration, "each %s entry must be a mapping", key)
		}
		out = append(out, entry)
	}
	return out, nil
}

func stringList(entry map[string]any, key string) ([]string, error) {
	value, ok := entry[key]
	if !ok || value == nil {
		return nil, nil
	}
	switch items := value.(type) {
	case []string:
		return items, nil
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, errs.New(errs.KindConfiguration, "%s entries must be strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errs.New(errs.KindConfiguration, "%s must be a list", key)
	}
}

func stringField(entry map[string]any, key string) string {
	s, _ := entry[key].(string)
	return s
}

func cloneEntry(entry map[string]any) map[string]any {
	out := make(map[string]any, len(entry))
	for k, v := range entry {
		out[k] = v
	}
	return out
}

func toAnyList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

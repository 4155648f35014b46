package generator

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var singularResources = map[string]string{
	"machines":             "machine",
	"nodes":                "node",
	"subnets":              "subnet",
	"fabrics":              "fabric",
	"vlans":                "vlan",
	"spaces":               "space",
	"tags":                 "tag",
	"users":                "user",
	"zones":                "zone",
	"resource-pools":       "resource-pool",
	"interfaces":           "interface",
	"ipranges":             "iprange",
	"ipaddresses":          "ipaddress",
	"files":                "file",
	"partitions":           "partition",
	"block-devices":        "block-device",
	"raid":                 "raid",
	"bcaches":              "bcache",
	"vm-hosts":             "vm-host",
	"vm-clusters":          "vm-cluster",
	"boot-resources":       "boot-resource",
	"boot-sources":         "boot-source",
	"devices":              "device",
	"node-devices":         "node-device",
	"discoveries":          "discovery",
	"dnsresources":         "dnsresource",
	"static-routes":        "static-route",
	"package-repositories": "package-repository",
	"vmfs-datastores":      "vmfs-datastore",
	"volume-groups":        "volume-group",
	"rack-controllers":     "rack-controller",
	"region-controllers":   "region-controller",
	"events":               "event",
	"maas":                 "maas",
}

// Page names that were published in plural form.
var pluralPageNames = map[string]string{
	"commissioning-script": "commissioning-scripts",
	"event":                "events",
	"ipaddress":            "ipaddresses",
	"node-result":          "node-results",
	"vmfs-datastore":       "vmfs-datastores",
}

// Singularize maps a CLI resource token to its singular page name.
func Singularize(resource string) string {
	if s, ok := singularResources[resource]; ok {
		return s
	}
	switch {
	case strings.Contains(resource, "-") && strings.HasSuffix(resource, "s"):
		return resource[:len(resource)-1]
	case strings.HasSuffix(resource, "es") && len(resource) > 3:
		return resource[:len(resource)-2]
	case strings.HasSuffix(resource, "s") && len(resource) > 2:
		return resource[:len(resource)-1]
	}
	return resource
}

// ParseKeyToGroup returns the page group of an introspector key and the
// command path shown for it. "maas <profile> <resource> <action>" belongs
// to the singular resource; "maas <profile> <command>" to the profile
// token, which is how builtins are keyed.
func ParseKeyToGroup(key string) (group, commandPath string) {
	parts := strings.Fields(key)
	if len(parts) >= 3 && parts[0] == "maas" {
		if len(parts) >= 4 {
			return Singularize(parts[2]), strings.Join(parts[2:], " ")
		}
		return parts[1], strings.Join(parts[1:], " ")
	}
	fallback := key
	if len(parts) > 0 && parts[0] == "maas" {
		fallback = strings.Join(parts[1:], " ")
	}
	if fallback == "" {
		fallback = key
	}
	return fallback, fallback
}

type groupedCommand struct {
	cmd  Command
	path string
}

// groupCommands deduplicates commands by key, keeping the last occurrence,
// and buckets them by page group.
func groupCommands(cmds []Command) (map[string][]groupedCommand, int) {
	byKey := make(map[string]Command)
	for _, c := range cmds {
		if c.Key == "" {
			continue
		}
		byKey[c.Key] = c
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make(map[string][]groupedCommand)
	for _, k := range keys {
		group, path := ParseKeyToGroup(k)
		if path == "" {
			path = group
		}
		groups[group] = append(groups[group], groupedCommand{cmd: byKey[k], path: path})
	}
	for _, list := range groups {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].path != list[j].path {
				return list[i].path < list[j].path
			}
			return list[i].cmd.Key < list[j].cmd.Key
		})
	}
	return groups, len(keys)
}

// pageFile picks the output file for a group. Published pages carry a topic
// number (machine-5678.md) or a placeholder (machine-tba.md); an existing
// one anywhere under outDir is reused, otherwise a new placeholder is
// created at the top level.
func pageFile(group, outDir string) string {
	base := strings.ToLower(strings.ReplaceAll(group, " ", "-"))
	if path := findExistingPage(base, outDir); path != "" {
		return path
	}
	return filepath.Join(outDir, base+"-tba.md")
}

func findExistingPage(base, outDir string) string {
	var files []string
	_ = filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".md") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	names := []string{base}
	if plural, ok := pluralPageNames[base]; ok {
		names = append(names, plural)
	}
	for _, name := range names {
		numbered := regexp.MustCompile(`^` + regexp.QuoteMeta(name) + `-(\d+)\.md$`)
		for _, f := range files {
			file := filepath.Base(f)
			if numbered.MatchString(file) || file == name+"-tba.md" {
				return f
			}
		}
	}
	return ""
}

func readIfExists(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

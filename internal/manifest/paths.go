package manifest

import (
	"os"
	"path/filepath"
	"strings"
)

// Paths lists where manifests are searched for. Entries may be directories,
// scanned for *.json files, or individual manifest files.
type Paths struct {
	Layers []string
	ICDs   []string
}

// SearchPaths resolves the search order the loader uses on Unix-like
// systems. getenv is usually os.Getenv.
//
// VK_LAYER_PATH replaces the explicit layer directories and
// VK_ADD_LAYER_PATH is searched before them. Implicit layer directories are
// always searched. VK_DRIVER_FILES, or the older VK_ICD_FILENAMES, replaces
// the driver directories.
func SearchPaths(getenv func(string) string) Paths {
	bases := configBases(getenv)

	var p Paths
	if env := getenv("VK_LAYER_PATH"); env != "" {
		p.Layers = splitList(env)
	} else {
		p.Layers = splitList(getenv("VK_ADD_LAYER_PATH"))
		for _, base := range bases {
			p.Layers = append(p.Layers, filepath.Join(base, "vulkan", "explicit_layer.d"))
		}
	}
	for _, base := range bases {
		p.Layers = append(p.Layers, filepath.Join(base, "vulkan", "implicit_layer.d"))
	}

	drivers := getenv("VK_DRIVER_FILES")
	if drivers == "" {
		drivers = getenv("VK_ICD_FILENAMES")
	}
	if drivers != "" {
		p.ICDs = splitList(drivers)
	} else {
		for _, base := range bases {
			p.ICDs = append(p.ICDs, filepath.Join(base, "vulkan", "icd.d"))
		}
	}
	return p
}

// configBases returns the XDG config and data roots followed by /etc.
func configBases(getenv func(string) string) []string {
	home := getenv("HOME")

	var bases []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		for _, b := range bases {
			if b == dir {
				return
			}
		}
		bases = append(bases, dir)
	}

	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" && home != "" {
		configHome = filepath.Join(home, ".config")
	}
	add(configHome)

	configDirs := getenv("XDG_CONFIG_DIRS")
	if configDirs == "" {
		configDirs = "/etc/xdg"
	}
	for _, d := range splitList(configDirs) {
		add(d)
	}
	add("/etc")

	dataHome := getenv("XDG_DATA_HOME")
	if dataHome == "" && home != "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	add(dataHome)

	dataDirs := getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range splitList(dataDirs) {
		add(d)
	}
	return bases
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

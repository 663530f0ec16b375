package validator

import (
	"os"

	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/registry"
)

// Options tune Validate.
type Options struct {
	// Exists reports whether a path exists. Nil means os.Stat.
	Exists func(path string) bool
}

func statExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Validate lints every entry of reg.
func Validate(reg *registry.Registry, opts Options) *Result {
	exists := opts.Exists
	if exists == nil {
		exists = statExists
	}

	res := &Result{Path: reg.Path, Issues: []Issue{}}
	seen := make(map[string]int)

	for i, e := range reg.Entries {
		k, ok := e.Kit()
		if !ok {
			res.add(SeverityInfo, i, e.Name, "", "entry is not a kit object and is kept as is", nil)
			continue
		}
		res.Kits++

		if k.Name == "" {
			res.add(SeverityError, i, "", "name", "is required", nil)
		} else if first, dup := seen[k.Name]; dup {
			res.add(SeverityError, i, k.Name, "name", "duplicates the kit at index", first)
		} else {
			seen[k.Name] = i
		}

		if g := k.Generator; g != nil {
			if g.Name == "" {
				res.add(SeverityError, i, k.Name, "preferredGenerator.name", "is required", nil)
			}
			if g.IsNinja() && (g.Platform != "" || g.Toolset != "") {
				res.add(SeverityError, i, k.Name, "preferredGenerator", "Ninja generators accept no platform or toolset", g.Name)
			}
		}

		checkFile(res, i, k.Name, "toolchainFile", k.ToolchainFile, exists)
		checkFile(res, i, k.Name, "environmentSetupScript", k.EnvironmentSetupScript, exists)

		if !kit.IsGenerated(k) {
			continue
		}
		if ins := k.EnvironmentVariables[kit.EnvInstallation]; ins != "" && !exists(ins) {
			res.add(SeverityWarning, i, k.Name, kit.EnvInstallation,
				"Qt installation no longer exists; run qtkit sync", ins)
		}
		if exe := k.EnvironmentVariables[kit.EnvQtPathsExe]; exe != "" && !exists(exe) {
			res.add(SeverityWarning, i, k.Name, kit.EnvQtPathsExe,
				"qtpaths binary no longer exists; run qtkit sync", exe)
		}
		if !k.IsTrusted {
			res.add(SeverityInfo, i, k.Name, "isTrusted", "generated kit is not trusted", nil)
		}
	}

	if reg.Extended {
		res.add(SeverityInfo, -1, "", "", "comments and trailing commas are dropped when qtkit rewrites the file", nil)
	}
	return res
}

func checkFile(res *Result, index int, name, field, path string, exists func(string) bool) {
	if path != "" && !exists(path) {
		res.add(SeverityWarning, index, name, field, "file does not exist", path)
	}
}

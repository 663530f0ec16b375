// Package validator lints kit registries.
//
// Validation reports problems CMake Tools would trip over, such as entries
// without a name, duplicate names, or Ninja kits that set a generator
// platform. It also reports generated kits that went stale because the Qt
// installation or qtpaths binary they point at is gone. Issues carry a
// [Severity]; only errors make a registry invalid.
package validator

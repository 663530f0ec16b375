// Package synth builds CMake Tools kit descriptors for Qt installations.
//
// A Builder turns one installation directory into zero, one or two kits
// depending on its toolchain family: MSVC installations expand into one kit
// per compatible Visual Studio toolset, iOS installations yield a device kit
// and a simulator kit, and everything else yields a single kit. Kits are
// named deterministically from the installation path so that regenerating
// an unchanged installation set yields identical names.
//
// Installations registered through qtpaths are handled by FromQtPaths, which
// derives the kit from "qtpaths -query" output instead of the directory
// layout.
package synth

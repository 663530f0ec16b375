// Package installation finds Qt installations on disk and answers questions
// about them.
//
// A Qt installation root (for example ~/Qt or C:\Qt) holds version
// directories such as 6.5.0, each of which holds one directory per toolchain
// (msvc2019_64, mingw_64, macos, ios, android_arm64_v8a). Discover walks that
// layout. FSLocator resolves the auxiliary files kits refer to (the CMake
// toolchain file, the MinGW compilers, Ninja and CMake shipped under Tools).
// QtPathsQuerier runs "qtpaths -query" for installations registered by path
// rather than found under a root.
package installation

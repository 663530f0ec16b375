// Package kitmgr ties discovery, kit synthesis and registry reconciliation
// together for every configured scope.
//
// Each scope (the global registry plus one per configured workspace) is
// reconciled from two independent sources: the Qt installations found under
// its installation root, and the qtpaths/qmake binaries listed in its
// additional paths. A Manager runs those passes on demand (Check, CheckAll),
// when configuration changes (Watch), and in reverse to remove every kit it
// generated (Reset).
package kitmgr

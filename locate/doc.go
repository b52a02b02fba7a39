// Package locate canonicalizes heterogeneous code locations into URLs.
//
// A Location is a URL object, a URL string, or a filesystem path in POSIX or
// Win32 syntax. Resolve turns any of them into one absolute URL: URLs pass
// through (objects are copied, never aliased), paths are anchored to a base
// directory and converted to file: URLs. Resolution is pure apart from
// reading the working directory.
package locate

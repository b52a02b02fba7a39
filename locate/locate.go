package locate

import (
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/wippyai/emit/errors"
)

// Location is a value that names where code lives: a URL object, a URL
// string, or an absolute or relative filesystem path. The union is closed;
// construct values with FromURL or FromString.
type Location interface {
	isLocation()
}

type urlLocation struct {
	u *url.URL
}

type stringLocation struct {
	s string
}

func (urlLocation) isLocation()    {}
func (stringLocation) isLocation() {}

// FromURL wraps an already-parsed URL as a Location
func FromURL(u *url.URL) Location {
	return urlLocation{u: u}
}

// FromString wraps a URL string or a filesystem path as a Location
func FromString(s string) Location {
	return stringLocation{s: s}
}

// Resolve canonicalizes a Location into an absolute URL.
//
// URL objects come back as structural copies, never the caller's pointer, so
// downstream mutation cannot be observed through the original value. URL
// strings are returned as parsed. Anything else is treated as a filesystem
// path (POSIX or Win32 syntax, regardless of host platform) and anchored to
// baseDir, or to the process working directory when baseDir is empty.
//
// The Win32 drive-letter form ("C:\x" or "C:/x") parses as a URL with a
// one-letter scheme, so single-letter schemes are always read as paths.
func Resolve(loc Location, baseDir string) (*url.URL, error) {
	switch l := loc.(type) {
	case urlLocation:
		if l.u == nil {
			return nil, errors.Location("", nil)
		}
		clone := *l.u
		return &clone, nil
	case stringLocation:
		return resolveString(l.s, baseDir)
	default:
		return nil, errors.Location("", nil)
	}
}

func resolveString(s, baseDir string) (*url.URL, error) {
	if s == "" {
		return nil, errors.Location(s, nil)
	}

	if u, err := url.Parse(s); err == nil {
		if u.IsAbs() && len(u.Scheme) > 1 && !hasDrivePrefix(s) {
			return u, nil
		}
	}

	return pathURL(s, baseDir)
}

// pathURL converts a filesystem path into a file: URL, anchoring relative
// paths against baseDir or the working directory.
func pathURL(p, baseDir string) (*url.URL, error) {
	p = strings.ReplaceAll(p, `\`, "/")

	if !isAbsPath(p) {
		if baseDir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, errors.Location(p, err)
			}
			baseDir = wd
		}
		baseDir = strings.ReplaceAll(baseDir, `\`, "/")
		p = path.Join(baseDir, p)
	} else {
		p = path.Clean(p)
	}

	// Drive-letter paths sit under an extra leading slash in file: URLs,
	// file:///C:/dir/mod.ts.
	if hasDrivePrefix(p) {
		p = "/" + p
	}

	return &url.URL{Scheme: "file", Path: p}, nil
}

// FilePath converts a file: URL back to a host path. Drive-letter URLs lose
// the artificial leading slash.
func FilePath(u *url.URL) (string, error) {
	if u.Scheme != "file" {
		return "", errors.Location(u.String(), nil)
	}
	p := u.Path
	if len(p) >= 3 && p[0] == '/' && isDriveLetter(p[1]) && p[2] == ':' {
		p = p[1:]
	}
	return p, nil
}

// WorkingDir returns the process working directory as a file: URL with a
// trailing slash.
func WorkingDir() (*url.URL, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Location(".", err)
	}
	u, err := pathURL(wd, "")
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

func isAbsPath(p string) bool {
	return strings.HasPrefix(p, "/") || hasDrivePrefix(p)
}

func hasDrivePrefix(p string) bool {
	return len(p) >= 3 && isDriveLetter(p[0]) && p[1] == ':' && (p[2] == '/' || p[2] == '\\')
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

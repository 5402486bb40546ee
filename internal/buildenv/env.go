// Package buildenv reads the process environment that parameterizes a build:
// the package version, the production flag and the source control commit.
// Inputs are validated up front so a bad environment fails with a
// ConfigError before any profile is assembled.
package buildenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// EnvPackageVersion is set by npm when a script is run through `npm run`.
	EnvPackageVersion = "npm_package_version"
	// EnvVersion is the fallback used when running outside of npm.
	EnvVersion = "SCRIPTPACK_VERSION"
	// EnvNodeEnv selects production behaviour when equal to "production".
	EnvNodeEnv = "NODE_ENV"
	// EnvDartSass points at a dart-sass executable used to compile scss.
	EnvDartSass = "SCRIPTPACK_DART_SASS"
)

// ConfigError reports a missing or malformed environment input.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid build configuration: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid build configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Env is the validated build environment.
type Env struct {
	Version    *semver.Version
	Production bool
	Commit     string
	RootDir    string
	DartSass   string
}

// FromEnviron builds an Env using lookup, typically os.LookupEnv.
func FromEnviron(lookup func(string) (string, bool)) (*Env, error) {
	raw, ok := lookup(EnvPackageVersion)
	if !ok || strings.TrimSpace(raw) == "" {
		raw, ok = lookup(EnvVersion)
	}
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, &ConfigError{
			Field:  EnvPackageVersion,
			Reason: fmt.Sprintf("version is required (set %s or %s)", EnvPackageVersion, EnvVersion),
		}
	}

	version, err := semver.StrictNewVersion(raw)
	if err != nil {
		return nil, &ConfigError{Field: EnvPackageVersion, Reason: fmt.Sprintf("%q is not a semantic version", raw), Err: err}
	}

	nodeEnv, _ := lookup(EnvNodeEnv)
	dartSass, _ := lookup(EnvDartSass)

	return &Env{
		Version:    version,
		Production: nodeEnv == "production",
		DartSass:   dartSass,
	}, nil
}

// Load reads the environment of the current process and resolves relative
// paths against rootDir, defaulting to the working directory.
func Load(rootDir string) (*Env, error) {
	env, err := FromEnviron(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	if rootDir == "" {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
	}
	env.RootDir, err = filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	return env, nil
}

// VersionParts returns the numeric components and the prerelease identifiers
// of the version. Prerelease is an empty slice when the version has none.
func (e *Env) VersionParts() (major, minor, patch uint64, prerelease []string) {
	prerelease = []string{}
	if pre := e.Version.Prerelease(); pre != "" {
		prerelease = strings.Split(pre, ".")
	}
	return e.Version.Major(), e.Version.Minor(), e.Version.Patch(), prerelease
}

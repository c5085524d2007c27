package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// LoadConfig configures how the YAML configuration file is loaded.
type LoadConfig struct {
	// Path is the YAML config file path. If empty no file is loaded and the
	// flag defaults are used.
	Path string

	// ExpandEnv expands environment variables in the config file.
	ExpandEnv bool
}

func (c *LoadConfig) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&c.Path,
		"config.path",
		"",
		`
YAML config file path.`,
	)
	fs.BoolVar(
		&c.ExpandEnv,
		"config.expand-env",
		false,
		`
Whether to expand environment variables in the config file.

This will replaces references to ${VAR} or $VAR with the corresponding
environment variable. The replacement is case-sensitive.

References to undefined variables will be replaced with an empty string. A
default value can be given using form ${VAR:default}.`,
	)
}

// Load loads the config file at LoadConfig.Path into conf, if a path is set.
func (c *LoadConfig) Load(conf interface{}) error {
	if c.Path == "" {
		return nil
	}
	return Load(c.Path, conf, c.ExpandEnv)
}

// Load decodes the YAML file at the given path into conf. Unknown fields are
// rejected.
func Load(path string, conf interface{}, expandEnv bool) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %s: %w", path, err)
	}

	if expandEnv {
		buf = []byte(expandEnvDefault(string(buf)))
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)

	if err := dec.Decode(conf); err != nil {
		return fmt.Errorf("parse config: %s: %w", path, err)
	}

	return nil
}

var envDefaultRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):([^}]*)\}`)

// expandEnvDefault expands ${VAR:default} references, then the remaining
// $VAR and ${VAR} references using os.ExpandEnv.
func expandEnvDefault(s string) string {
	s = envDefaultRe.ReplaceAllStringFunc(s, func(ref string) string {
		m := envDefaultRe.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok {
			return v
		}
		return m[2]
	})
	return os.ExpandEnv(s)
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/univscript/univscript/internal/installation"
	"github.com/univscript/univscript/internal/params"
)

const (
	// LogLevelDebug logs execution states and resolution details.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs launched commands.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs ignored failures and recoverable problems.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidNode is the sentinel error wrapped by InvalidNodeError.
	ErrInvalidNode = errors.New("invalid node")
	// ErrUnknownNode is returned when a node name is not configured.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of log records that are written.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidNodeError is returned when a NodeConfig has invalid fields.
	InvalidNodeError struct {
		Name   string
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Runtimes declares the runtime installations.
		Runtimes []RuntimeConfig `json:"runtimes" mapstructure:"runtimes"`
		// Nodes declares per-node home overrides.
		Nodes []NodeConfig `json:"nodes" mapstructure:"nodes"`
		// Tokenizer selects the parameter splitting rules.
		Tokenizer params.Mode `json:"tokenizer" mapstructure:"tokenizer"`
		// LogLevel sets the minimum log level.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// MetricsFile, when set, receives execution metrics in the
		// Prometheus text format.
		MetricsFile string `json:"metrics_file" mapstructure:"metrics_file"`
		// UI configures the command line output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RuntimeConfig is the file form of an installation.Installation.
	RuntimeConfig struct {
		Name              string `json:"name" mapstructure:"name"`
		Home              string `json:"home" mapstructure:"home"`
		WindowsExecutable string `json:"windows_executable,omitempty" mapstructure:"windows_executable"`
		UnixExecutable    string `json:"unix_executable,omitempty" mapstructure:"unix_executable"`
		CheckCommand      string `json:"check_command,omitempty" mapstructure:"check_command"`
		Env               string `json:"env,omitempty" mapstructure:"env"`
		EnvWindows        string `json:"env_windows,omitempty" mapstructure:"env_windows"`
		EnvUnix           string `json:"env_unix,omitempty" mapstructure:"env_unix"`
	}

	// NodeConfig overrides installation homes on one execution node.
	NodeConfig struct {
		Name  string     `json:"name" mapstructure:"name"`
		Homes []NodeHome `json:"homes,omitempty" mapstructure:"homes"`
	}

	// NodeHome is the home of one runtime on a node.
	NodeHome struct {
		Runtime string `json:"runtime" mapstructure:"runtime"`
		Home    string `json:"home" mapstructure:"home"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and full error chains.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Level converts l to a charmbracelet/log level. Unknown values map to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Error implements the error interface for InvalidNodeError.
func (e *InvalidNodeError) Error() string {
	if e.Name == "" {
		return "invalid node: " + e.Reason
	}
	return fmt.Sprintf("invalid node %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidNode for errors.Is() compatibility.
func (e *InvalidNodeError) Unwrap() error { return ErrInvalidNode }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Installation converts r to the installation record used at runtime.
func (r RuntimeConfig) Installation() installation.Installation {
	return installation.Installation{
		Name:              r.Name,
		Home:              r.Home,
		WindowsExecutable: r.WindowsExecutable,
		UnixExecutable:    r.UnixExecutable,
		CheckCommand:      r.CheckCommand,
		Env:               r.Env,
		EnvWindows:        r.EnvWindows,
		EnvUnix:           r.EnvUnix,
	}
}

// IsValid returns whether the NodeConfig has a name and well-formed homes.
func (n NodeConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(n.Name) == "" {
		errs = append(errs, &InvalidNodeError{Reason: "name must not be empty"})
	}
	if n.Name == installation.LocalNodeName {
		errs = append(errs, &InvalidNodeError{Name: n.Name, Reason: "name is reserved for the local node"})
	}
	seen := make(map[string]struct{}, len(n.Homes))
	for i, h := range n.Homes {
		if strings.TrimSpace(h.Runtime) == "" || strings.TrimSpace(h.Home) == "" {
			errs = append(errs, &InvalidNodeError{Name: n.Name, Reason: fmt.Sprintf("homes[%d]: runtime and home are required", i)})
			continue
		}
		if _, dup := seen[h.Runtime]; dup {
			errs = append(errs, &InvalidNodeError{Name: n.Name, Reason: fmt.Sprintf("duplicate home for runtime %q", h.Runtime)})
		}
		seen[h.Runtime] = struct{}{}
	}
	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// IsValid returns whether the Config has valid fields. It checks every
// runtime and node, name uniqueness, the tokenizer mode and the log level.
func (c *Config) IsValid() (bool, []error) {
	var errs []error

	runtimes := make(map[string]struct{}, len(c.Runtimes))
	for _, r := range c.Runtimes {
		if err := r.Installation().Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := runtimes[r.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: %q", installation.ErrDuplicateName, r.Name))
		}
		runtimes[r.Name] = struct{}{}
	}

	nodes := make(map[string]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		if valid, fieldErrs := n.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
			continue
		}
		if _, dup := nodes[n.Name]; dup {
			errs = append(errs, &InvalidNodeError{Name: n.Name, Reason: "duplicate node name"})
		}
		nodes[n.Name] = struct{}{}
	}

	if err := c.Tokenizer.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.LogLevel != "" {
		if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate returns the first error reported by IsValid, or nil.
func (c *Config) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

// Installations converts the configured runtimes in declaration order.
func (c *Config) Installations() []installation.Installation {
	list := make([]installation.Installation, 0, len(c.Runtimes))
	for _, r := range c.Runtimes {
		list = append(list, r.Installation())
	}
	return list
}

// Registry builds an installation registry from the configured runtimes.
func (c *Config) Registry() (*installation.Registry, error) {
	return installation.NewRegistry(c.Installations()...)
}

// Node returns the execution node called name. The empty name and
// installation.LocalNodeName select the local node.
func (c *Config) Node(name string) (installation.Node, error) {
	if name == "" || name == installation.LocalNodeName {
		return installation.LocalNode{}, nil
	}
	for _, n := range c.Nodes {
		if n.Name != name {
			continue
		}
		homes := make(map[string]string, len(n.Homes))
		for _, h := range n.Homes {
			homes[h.Runtime] = h.Home
		}
		return installation.NewToolLocationNode(n.Name, homes), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNode, name)
}

// ParamTokenizer returns the parameter tokenizer selected by the configuration.
func (c *Config) ParamTokenizer() params.Tokenizer {
	return params.Tokenizer{Mode: c.Tokenizer}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Runtimes:  []RuntimeConfig{},
		Nodes:     []NodeConfig{},
		Tokenizer: params.ModeLiteral,
		LogLevel:  LogLevelInfo,
		UI: UIConfig{
			Verbose: false,
		},
	}
}
